package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
)

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDocument,
		errors.ErrCodeInvalidSchema, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeUnknownRelationKind, errors.ErrCodeConsistency, errors.ErrCodeAPI:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON:API error document.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	writeJSON(w, status, jsonapi.MediaType, jsonapi.Body{
		Errors: []jsonapi.ErrorObject{{
			Status: strconv.Itoa(status),
			Code:   string(code),
			Title:  http.StatusText(status),
			Detail: errors.UserMessage(err),
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}
