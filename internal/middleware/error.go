package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"vinyl-store/internal/service"

	"go.uber.org/zap"
)

const internalErrorMessage = "Hubo un error inesperado. Por favor, inténtalo de nuevo más tarde"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Msg    string            `json:"msg"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// RespondWithError sends {"msg": message} with the given status
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Msg: message})
}

// RespondWithValidationErrors sends a 400 listing the offending fields
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Msg:    "Lo sentimos, debes llenar todos los campos correctamente",
		Errors: errors,
	})
}

// RespondWithServiceError maps a service failure to its status code.
// Unclassified errors are logged and answered with a generic 500.
func RespondWithServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) || svcErr.Kind == service.KindInternal {
		logger.Error("Request failed", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindUnauthorized:
		status = http.StatusUnauthorized
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindConflict:
		status = http.StatusConflict
	}

	logger.Debug("Request rejected",
		zap.String("kind", svcErr.Kind.String()),
		zap.Error(err),
	)
	RespondWithError(w, status, svcErr.Message)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, internalErrorMessage)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
