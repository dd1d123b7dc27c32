// Package httputil is the gateway's analogue of the teacher's
// api/utils HTTP helpers: a typed-error-aware handler wrapper plus
// small JSON request/response helpers, so gatewayerr.Error values flow
// straight through to the wire without being re-encoded at each call site.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/seatrace-io/leg/internal/gatewayerr"
)

// JSONContentType is the content type written by WriteJSON.
const JSONContentType = "application/json; charset=utf-8"

// HandlerFunc is like http.HandlerFunc but may return an error.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc adapts a HandlerFunc to http.HandlerFunc. A returned
// *gatewayerr.Error is rendered with its status/code/message (and
// Retry-After, when set); any other error becomes a 500.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		writeError(w, err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if ge, ok := err.(*gatewayerr.Error); ok {
		if ge.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(ge.RetryAfterSeconds))
		}
		w.Header().Set("Content-Type", JSONContentType)
		w.WriteHeader(ge.Status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    string(ge.Code),
			"message": ge.Message,
		})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// WriteJSON encodes v as the response body. It writes no status of its
// own: the response is 200 unless the handler already wrote a status.
func WriteJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(v)
}

// ParseJSON decodes the request body into v.
func ParseJSON(body io.Reader, v any) error {
	return json.NewDecoder(body).Decode(v)
}
