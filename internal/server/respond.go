package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/ajg/form"
	"github.com/rs/zerolog/hlog"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeBody reads the request body into dst. Form-encoded bodies are
// decoded as forms, everything else as JSON. Fields dst does not declare are
// ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		return decodeForm(r.Body, dst)
	}
	return decodeJSON(r.Body, dst)
}

func decodeForm(body io.Reader, dst any) error {
	decoder := form.NewDecoder(body)
	decoder.IgnoreUnknownKeys(true)
	err := decoder.Decode(dst)
	if err == nil {
		return nil
	}

	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		return domain.NewValidationError("Request body must not be larger than 1MB")
	}
	return domain.NewValidationError("Request body contains badly-formed form data").WithCause(err)
}

// decodeJSON reads a single JSON object into dst. Malformed input becomes a
// validation error with a message safe to return.
func decodeJSON(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	err := decoder.Decode(dst)
	if err == nil {
		if decoder.More() {
			return domain.NewValidationError("Request body must only contain a single JSON object")
		}
		return nil
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		return domain.NewValidationError(fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset))
	case errors.Is(err, io.ErrUnexpectedEOF):
		return domain.NewValidationError("Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field == "" {
			return domain.NewValidationError("Request body must be a JSON object")
		}
		return domain.NewValidationError(fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset))
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("Request body must not be empty")
	case errors.As(err, &maxBytesError):
		return domain.NewValidationError("Request body must not be larger than 1MB")
	default:
		return domain.ErrInternal.WithCause(fmt.Errorf("decoding request body: %w", err))
	}
}

// statusFromKind maps domain error kinds to HTTP status codes.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the client-facing message of a domain error.
// Anything else is logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		if de.Err != nil {
			hlog.FromRequest(r).Debug().Err(de.Err).Str("kind", de.Kind.String()).Msg(de.Message)
		}
		respondWithError(w, statusFromKind(de.Kind), de.Message)
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, domain.ErrInternal.Message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
