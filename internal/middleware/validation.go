package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest validates a struct against its validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			out = append(out, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return out
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "El correo electrónico no es válido"
	case "min":
		return "Debe tener al menos " + e.Param() + " caracteres"
	case "max":
		return "Debe tener como máximo " + e.Param() + " caracteres"
	case "len":
		return "Debe contener " + e.Param() + " dígitos"
	case "numeric":
		return "Solo se permiten números"
	case "gte":
		return "Debe ser mayor o igual a " + e.Param()
	case "gt":
		return "Debe ser mayor a " + e.Param()
	case "uuid4", "uuid":
		return "Debe ser un ID válido"
	case "dive":
		return "Contiene elementos no válidos"
	default:
		return "Valor no válido"
	}
}
