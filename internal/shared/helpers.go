// Package shared provides common utility functions used across multiple
// packages in the generic-exporter codebase.
package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorMessage returns the builder message of an errbuilder error, which
// omits the code and cause, or err.Error() for any other error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

// HasCode reports whether err carries one of the given errbuilder codes.
func HasCode(err error, codes ...errbuilder.ErrCode) bool {
	if err == nil {
		return false
	}
	code := errbuilder.CodeOf(err)
	for _, candidate := range codes {
		if code == candidate {
			return true
		}
	}
	return false
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}
