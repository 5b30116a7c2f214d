package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrEmptyPayload is returned by Decode when a payload is required but missing.
var ErrEmptyPayload = errors.New("payload is required")

// Decode unmarshals raw into a new T and validates it.
func Decode[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrEmptyPayload
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := Validate(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks struct tags and reports the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q", fe.Field(), fe.Tag())
	}
	return err
}
