/*
Package resp writes the JSON envelope every API endpoint answers with:

	{"code": 0, "message": "success", "data": ...}

Errors reuse the same shape with the business code from package errs.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
)

// JSONResponse is the response envelope.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON marshals payload and writes it with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "failed to encode JSON response", "http_status", status)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		logx.Warn("failed to write response body", "error", err.Error())
	}
}

// RespondSuccess writes data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// RespondCreated writes data with HTTP 201 and code 0.
func RespondCreated(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusCreated, JSONResponse{Code: 0, Message: "created", Data: data})
}

// RespondError writes customErr; a nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
