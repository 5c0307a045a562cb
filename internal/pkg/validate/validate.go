package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Field names in messages follow
// the json tag so clients see the names they sent.
var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return val
}()

// Struct validates the given struct using its validate tags.
// Failures wrap domain.ErrInvalidInput.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrInvalidInput)
	}
	return nil
}
