package config

import (
	"bytes"
	"os"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
)

// Configuration keys
const (
	KeyAPIKey         = "api_key"
	KeySubdomain      = "subdomain"
	KeyBoardID        = "board_id"
	KeyBaseURL        = "base_url"
	KeyRequestTimeout = "request_timeout"
	KeyUserAgent      = "user_agent"
	KeyEnableHTTP2    = "enable_http2"
	KeyTrace          = "trace"
)

// EnvPrefix prefixes environment overrides, e.g. TAP_KANBANIZE_API_KEY
const EnvPrefix = "TAP_KANBANIZE"

// DefaultRequestTimeout bounds the single get_all_tasks call
const DefaultRequestTimeout = 5 * time.Minute

// deprecatedAliases maps legacy key names to their canonical key
var deprecatedAliases = map[string]string{
	"apikey":  KeyAPIKey,
	"boardid": KeyBoardID,
}

// TapConfig is the validated runtime configuration
type TapConfig struct {
	// Required
	APIKey    string `json:"api_key" yaml:"api_key"`
	Subdomain string `json:"subdomain" yaml:"subdomain"`
	BoardID   string `json:"board_id" yaml:"board_id"`

	// Optional
	BaseURL        string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	UserAgent      string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	EnableHTTP2    bool          `json:"enable_http2" yaml:"enable_http2"`
	Trace          bool          `json:"trace" yaml:"trace"`

	// timeoutErr holds a request_timeout that could not be parsed
	timeoutErr error
}

// Load reads the configuration file at path, applies environment overrides and
// resolves deprecated aliases. The result is not validated.
func Load(path string, logger *zap.Logger) (*TapConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", path)
	}

	v := newViper()
	v.SetConfigType(configType(path))
	if err := v.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file").
			WithDetail("path", path)
	}

	return fromViper(v, logger), nil
}

// FromMap builds a configuration from already decoded values
func FromMap(values map[string]interface{}, logger *zap.Logger) *TapConfig {
	v := newViper()
	for key, value := range values {
		v.Set(key, value)
	}
	return fromViper(v, logger)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyEnableHTTP2, true)
	return v
}

func fromViper(v *viper.Viper, logger *zap.Logger) *TapConfig {
	for alias, canonical := range deprecatedAliases {
		if !v.IsSet(alias) {
			continue
		}
		logger.Warn("config key is deprecated",
			zap.String("key", alias),
			zap.String("use", canonical))
		if !v.IsSet(canonical) {
			v.Set(canonical, v.Get(alias))
		}
	}

	timeout, timeoutErr := parseTimeout(v.Get(KeyRequestTimeout))
	return &TapConfig{
		APIKey:         strings.TrimSpace(v.GetString(KeyAPIKey)),
		Subdomain:      strings.TrimSpace(v.GetString(KeySubdomain)),
		BoardID:        strings.TrimSpace(v.GetString(KeyBoardID)),
		BaseURL:        strings.TrimSpace(v.GetString(KeyBaseURL)),
		RequestTimeout: timeout,
		UserAgent:      v.GetString(KeyUserAgent),
		EnableHTTP2:    v.GetBool(KeyEnableHTTP2),
		Trace:          v.GetBool(KeyTrace),
		timeoutErr:     timeoutErr,
	}
}

// parseTimeout reads request_timeout. A bare number is seconds; a string may
// also carry a unit, as in "90s" or "5m".
func parseTimeout(raw interface{}) (time.Duration, error) {
	switch t := raw.(type) {
	case nil:
		return DefaultRequestTimeout, nil
	case time.Duration:
		return t, nil
	case int:
		return secondsToDuration(float64(t))
	case int32:
		return secondsToDuration(float64(t))
	case int64:
		return secondsToDuration(float64(t))
	case uint64:
		return secondsToDuration(float64(t))
	case float32:
		return secondsToDuration(float64(t))
	case float64:
		return secondsToDuration(t)
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return secondsToDuration(f)
		}
		return 0, errors.Newf(errors.ErrorTypeConfig, "%s %q is neither a duration nor a number of seconds", KeyRequestTimeout, t).
			WithDetail("key", KeyRequestTimeout)
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "%s has unsupported type %T", KeyRequestTimeout, raw).
			WithDetail("key", KeyRequestTimeout)
	}
}

func secondsToDuration(seconds float64) (time.Duration, error) {
	d := seconds * float64(time.Second)
	if math.IsNaN(d) || d >= math.MaxInt64 || d <= math.MinInt64 {
		return 0, errors.Newf(errors.ErrorTypeConfig, "%s %v is out of range", KeyRequestTimeout, seconds).
			WithDetail("key", KeyRequestTimeout)
	}
	return time.Duration(d), nil
}

// Validate reports every missing required key at once
func (c *TapConfig) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, KeyAPIKey)
	}
	if c.Subdomain == "" {
		missing = append(missing, KeySubdomain)
	}
	if c.BoardID == "" {
		missing = append(missing, KeyBoardID)
	}
	if len(missing) > 0 {
		return errors.MissingConfig(missing)
	}
	if c.timeoutErr != nil {
		return c.timeoutErr
	}
	if c.RequestTimeout <= 0 {
		return errors.New(errors.ErrorTypeConfig, "request_timeout must be positive").
			WithDetail("request_timeout", c.RequestTimeout.String())
	}
	return nil
}

// APIBaseURL returns the API root, https://{subdomain}.kanbanize.com unless
// base_url overrides it.
func (c *TapConfig) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://" + c.Subdomain + ".kanbanize.com"
}

// Endpoint returns the URL of an API function scoped to the configured board
func (c *TapConfig) Endpoint(function string) string {
	return c.APIBaseURL() + "/index.php/api/kanbanize/" + function +
		"/boardid/" + c.BoardID + "/format/json"
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Substituted values are copied as is and never scanned again.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
