package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies decoded by DecodeJSON
const MaxBodyBytes = 1 << 20

// APIResponse is the {success, data|error} envelope shared by both API versions
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// MetaInfo contains metadata about the response
type MetaInfo struct {
	RequestID  string          `json:"requestId,omitempty"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// RespondJSON sends data inside the envelope
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondWithMeta sends data with metadata such as pagination
func RespondWithMeta(w http.ResponseWriter, status int, data interface{}, meta *MetaInfo) {
	write(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	})
}

// RespondMessage sends a success envelope carrying only a message
func RespondMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{Success: true, Message: message})
}

// RespondError sends a failed envelope with a plain error message
func RespondError(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{Success: false, Error: message})
}

func write(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// ErrEmptyBody is returned by DecodeJSON for a request without a body
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON parses the request body into v, reading at most MaxBodyBytes.
// Strict decoding rejects unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if strict {
		decoder.DisallowUnknownFields()
	}

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
