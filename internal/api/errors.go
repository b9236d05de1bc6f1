package api

import (
	"errors"
	"net/http"
	"strings"

	"voyageai/pkg/model"
)

// Error codes carried in the JSON error body.
const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation_error"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeNotReady     = "not_ready"
	codeSuperseded   = "superseded"
	codeUnavailable  = "configuration"
	codeUpstream     = "upstream_error"
	codeAugmentation = "augmentation_failed"
	codeTimeout      = "timeout"
	codeInternal     = "internal_error"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// validationMessage strips the wrapping prefixes from a wrapped model.ErrValidation.
// e.g. "validation error: destination is required" -> "destination is required"
func validationMessage(err error) string {
	msg := err.Error()
	prefix := model.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func isValidation(err error) bool {
	return errors.Is(err, model.ErrValidation)
}
