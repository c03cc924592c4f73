// Package errors derives low-cardinality labels from errors for metric tags.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/placementcell/portal-auth/internal/errors"
)

// Classify returns a normalized label for err. Application errors are labeled
// by their code; anything else by the innermost concrete type, e.g.
// "oidc_tokenexpirederror".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return typeName(innermost(err))
}

// Cause labels the innermost error beneath any application error wrapper.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
