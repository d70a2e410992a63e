package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error half of the response envelope. Every non-2xx
// response the API produces carries one under the "error" key.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON encodes v and writes it with the given status. Encoding failures at
// this point cannot be reported to the client anymore, so they are dropped.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes the canonical error envelope. Code is a stable machine
// readable identifier (e.g. COUPON_INVALID), message is for humans, details
// is optional structured context.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}
