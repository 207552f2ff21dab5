package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
	regMu    sync.Mutex
)

// Validator returns the process-wide validator. Field names reported in errors are the
// JSON names of the payload.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// RegisterValidation adds a custom tag. Call it from package init functions only.
func RegisterValidation(tag string, fn validator.Func) {
	regMu.Lock()
	defer regMu.Unlock()
	if err := Validator().RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// RegisterStructValidation adds a cross-field rule for the given types. Call it from
// package init functions only.
func RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	regMu.Lock()
	defer regMu.Unlock()
	Validator().RegisterStructValidation(fn, types...)
}

// Messages maps "field.tag" (or just "field") to the message shown to the user
type Messages map[string]string

func (m Messages) lookup(fe validator.FieldError) string {
	if msg, ok := m[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := m[fe.Field()]; ok {
		return msg
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// Struct validates s and converts every failure into a FieldError rooted at prefix.
// Nested fields keep only their leaf name, which matches the flattened JSON layout of the
// payload types (embedded structs share their parent's object).
func Struct(prefix string, s interface{}, messages Messages) Errors {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{{Path: prefix, Message: err.Error()}}
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Add(Path(prefix, fe.Field()), messages.lookup(fe))
	}
	return out
}
