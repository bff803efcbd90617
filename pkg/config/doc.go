// Package config loads and validates the tap configuration.
//
// A configuration file is JSON or YAML, chosen by extension. Before parsing,
// ${VAR} references are replaced with environment values, and any key can be
// overridden with a TAP_KANBANIZE_ prefixed environment variable:
//
//	{
//	  "api_key": "${KANBANIZE_API_KEY}",
//	  "subdomain": "acme",
//	  "board_id": "12"
//	}
//
//	TAP_KANBANIZE_BOARD_ID=14 tap-kanbanize --config config.json
//
// The keys apikey and boardid from older configurations are accepted as
// deprecated aliases of api_key and board_id.
package config
