// Package validator wraps go-playground/validator for request bodies,
// catalog queries and backend records.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var engine = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}()

// jsonName names fields after their json key.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// messages maps a failed tag to a message; %s receives the tag parameter.
var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"min":      "must be at least %s characters",
	"max":      "must be at most %s characters",
	"len":      "must be exactly %s characters",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"oneof":    "must be one of [%s]",
	"numeric":  "must contain only digits",
	"url":      "must be a valid URL",
}

func describe(fe validator.FieldError) string {
	format, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, fe.Param())
	}
	return format
}

// ValidationError lists the failed fields of one value.
type ValidationError struct {
	Errors validator.ValidationErrors
}

// Fields returns field name to message.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func (e *ValidationError) Error() string {
	fields := e.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + fields[name]
	}
	return "invalid " + strings.Join(parts, ", ")
}

// Validate checks s against its validate tags. Failures come back as
// *ValidationError.
func Validate(s any) error {
	err := engine.Struct(s)
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		return &ValidationError{Errors: fes}
	}
	return err
}

// DecodeAndValidate reads a JSON body of at most 1 MiB into dst and
// validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return Validate(dst)
}
