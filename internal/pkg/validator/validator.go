package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// curiePart matches the prefix and reference halves of a compact identifier.
var curiePart = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("curie", validCurie)
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}

// validCurie accepts identifiers of the form prefix:reference with exactly
// one colon and slug-like halves.
func validCurie(fl validator.FieldLevel) bool {
	return IsCurie(fl.Field().String())
}

// IsCurie reports whether s is a well-formed prefix:reference identifier.
func IsCurie(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return false
	}
	return curiePart.MatchString(parts[0]) && curiePart.MatchString(parts[1])
}
