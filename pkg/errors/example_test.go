// Package errors provides examples of structured error handling in tap-kanbanize.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeRequest, "kanbanize request failed").
		WithDetail("status_code", 500).
		WithDetail("stream", "tasks")

	fmt.Println(err.Error())

	// Output:
	// request: kanbanize request failed
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeMalformedResponse, "response is not a JSON array").
		WithDetail("stream", "tasks")

	if errors.IsType(err, errors.ErrorTypeMalformedResponse) {
		fmt.Println("malformed response")
	}
	fmt.Println(err.Error())

	// Output:
	// malformed response
	// malformed_response: response is not a JSON array: unexpected EOF
}

// ExampleMissingConfig shows that every missing key is reported at once.
func ExampleMissingConfig() {
	err := errors.MissingConfig([]string{"subdomain", "api_key"})

	fmt.Println(err.Error())
	fmt.Println(err.Details["missing_keys"])

	// Output:
	// config: missing required config keys: api_key, subdomain
	// [api_key subdomain]
}
