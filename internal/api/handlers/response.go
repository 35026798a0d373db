package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps err onto a status code and body. Validation failures are
// rendered field by field; server errors are logged and replaced by a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)

	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, verr.Fields)
		return
	}

	detail := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		detail = "A server error occurred."
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decodeJSON reads the request body into v. An empty body decodes as an
// empty object so that required-field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.FieldError(typeErr.Field, fmt.Sprintf("Incorrect type. Expected %s.", typeErr.Type))
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.FieldError("non_field_errors", "Request body is too large.")
	}
	return apperrors.FieldError("non_field_errors", "JSON parse error - "+err.Error())
}
