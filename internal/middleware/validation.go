// path: backend/internal/middleware/validation.go
package middleware

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/pkg/response"
)

var validate = validator.New()

// RequireJSON rejects POST/PUT/PATCH requests whose Content-Type isn't
// application/json before they reach the handler's decode step.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if r.Header.Get("Content-Type") != "application/json" {
				response.Error(w, apierror.InvalidInput("Content-Type must be application/json"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateStruct validates a decoded request body against its validator
// struct tags; handlers call this after json.Decode.
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", formatValidationMessage(err), err)
	}
	return nil
}

func formatValidationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "validation failed"
	}
	fe := validationErrors[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " failed validation: " + fe.Tag()
	}
}
