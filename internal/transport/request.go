package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vinyl-store/internal/middleware"
	"vinyl-store/internal/storage"

	"go.uber.org/zap"
)

const (
	// multipartMemory bounds how much of a multipart body is kept in memory
	multipartMemory = 10 << 20
	// formOverhead is the body room left for text fields and part headers
	formOverhead = 1 << 20
)

var errFileTooLarge = errors.New("form file exceeds upload limit")

func tooLargeMessage(maxUpload int64) string {
	return fmt.Sprintf("La imagen no puede superar los %dMB", maxUpload>>20)
}

// MessageResponse is a success body carrying only a message
type MessageResponse struct {
	Msg string `json:"msg"`
}

// decodeJSON decodes the body without tag validation, leaving field checks
// to the service so their order is preserved.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("Request body decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "El cuerpo de la solicitud no es válido")
		return false
	}
	return true
}

// decodeAndValidate decodes the body and answers 400 on failure
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "El cuerpo de la solicitud no es válido")
		return false
	}
	return true
}

// parseMultipart caps the body at one upload plus form overhead and answers
// 400 when it is not a readable multipart form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxUpload int64, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Multipart body over limit", zap.Int64("limit", tooLarge.Limit))
			middleware.RespondWithError(w, http.StatusBadRequest, tooLargeMessage(maxUpload))
			return false
		}
		logger.Debug("Multipart parse failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "El formulario enviado no es válido")
		return false
	}
	return true
}

// formFile reads an optional file field of at most maxUpload bytes; a
// missing field yields nil
func formFile(r *http.Request, field string, maxUpload int64) (*storage.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxUpload {
		return nil, errFileTooLarge
	}
	return &storage.File{Name: header.Filename, Data: data}, nil
}

// readFormFile is formFile answering 400 when the part cannot be read
func readFormFile(w http.ResponseWriter, r *http.Request, field string, maxUpload int64, logger *zap.Logger) (*storage.File, bool) {
	file, err := formFile(r, field, maxUpload)
	if err != nil {
		logger.Debug("Form file read failed", zap.String("field", field), zap.Error(err))
		if errors.Is(err, errFileTooLarge) {
			middleware.RespondWithError(w, http.StatusBadRequest, tooLargeMessage(maxUpload))
			return nil, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "No se pudo leer el archivo enviado")
		return nil, false
	}
	return file, true
}

// formValue returns a pointer to the field's value, or nil when absent
func formValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
