package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// apiResponse is the JSON envelope every handler in this package writes.
// Success responses carry "data"; failures carry "error" plus the chi
// request ID already attached to the request context by RequestLogger's
// middleware chain, so an operator can correlate a failed REST call with
// the matching line in the supervisor's structured log.
//
// Success:  {"data": <payload>}
// Error:    {"error": {"message": "...", "code": "..."}, "request_id": "..."}
type apiResponse struct {
	Data      any            `json:"data,omitempty"`
	Error     *errorResponse `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Ok writes a 200 OK response wrapping payload in {"data": payload}.
func Ok(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, apiResponse{Data: payload})
}

// NoContent writes a 204 No Content response with no body — used by the
// command-relay endpoint, which has nothing to report back on success
// beyond "the packet was sent".
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func errJSON(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	writeJSON(w, status, apiResponse{
		Error:     &errorResponse{Message: message, Code: code},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// ErrBadRequest writes a 400 Bad Request response — a malformed plc id, an
// unrecognized command name, or a body that failed to decode.
func ErrBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	errJSON(w, r, http.StatusBadRequest, message, "bad_request")
}

// ErrNotFound writes a 404 Not Found response — no telemetry is on record
// for the requested plc id, or (via core.ErrPeerNotLinked) the command
// relay has no linked session to send through.
func ErrNotFound(w http.ResponseWriter, r *http.Request) {
	errJSON(w, r, http.StatusNotFound, "resource not found", "not_found")
}

// ErrUnprocessable writes a 422 Unprocessable Entity response — the request
// was well-formed but core.SendCommand could not relay it (e.g. the peer's
// reply address is not yet known).
func ErrUnprocessable(w http.ResponseWriter, r *http.Request, message string) {
	errJSON(w, r, http.StatusUnprocessableEntity, message, "validation_error")
}

// ErrInternal writes a 500 Internal Server Error response for a command
// relay failure that isn't the operator's fault (a transport send error).
// The error detail is logged by the caller, not echoed to the client.
func ErrInternal(w http.ResponseWriter, r *http.Request) {
	errJSON(w, r, http.StatusInternalServerError, "an internal error occurred", "internal_error")
}

// decodeJSON decodes the request body into dst, rejecting unknown fields
// and bodies over 1 MiB. Returns false and writes ErrBadRequest if decoding
// fails, so callers can early-return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		ErrBadRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}
