package cms_fields

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validatorOnce sync.Once
var validate *validator.Validate

// Validator returns the process-wide validator. Struct tags are read from `binding` and
// field names are reported by their json name.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")

		if err := validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return IsSlug(fl.Field().String())
		}); err != nil {
			panic(err)
		}

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

func ValidateStruct(obj interface{}) error {
	if kindOfData(obj) == reflect.Struct {
		if err := Validator().Struct(obj); err != nil {
			return err
		}
	}
	return nil
}

func kindOfData(data interface{}) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()

	if valueType == reflect.Ptr {
		valueType = value.Elem().Kind()
	}
	return valueType
}

// ValidationDetails flattens validator errors into field -> message. Other errors yield nil.
func ValidationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, e := range verrs {
		details[fieldName(e)] = ErrorToString(e)
	}
	return details
}

// fieldName keeps the index for slice elements, e.g. tags[2].
func fieldName(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func ErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("at most %s items are allowed", e.Param())
		}
		return fmt.Sprintf("this field cannot be longer than %s", e.Param())
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("at least %s items are required", e.Param())
		}
		return fmt.Sprintf("this field must be at least %s characters long", e.Param())
	case "email":
		return "invalid email format"
	case "url":
		return "invalid url"
	case "len":
		return fmt.Sprintf("this field must be %s characters long", e.Param())
	case "numeric":
		return "this field must contain digits only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	case "slug":
		return "only lower-case letters, digits and single dashes are allowed"
	case "startswith":
		return fmt.Sprintf("must start with %q", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	default:
		return fmt.Sprintf("%s is not valid", e.Field())
	}
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
