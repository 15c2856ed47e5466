// path: backend/pkg/response/response.go
package response

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/modhub/platform/internal/apierror"
)

// errorBody is the wire shape every error response takes, keyed on the
// apierror taxonomy rather than a free-form message string.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	RetryAfter  int    `json:"retry_after_ms,omitempty"`
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("error encoding JSON response: %v", err)
	}
}

// Error renders err as the API's standard error shape. A non-*apierror.Error
// is reported as an opaque internal error rather than leaking its message.
func Error(w http.ResponseWriter, err error) {
	ae, ok := err.(*apierror.Error)
	if !ok {
		log.Printf("unclassified error: %v", err)
		JSON(w, http.StatusInternalServerError, errorBody{
			Error:       "internal",
			Description: "an internal error occurred",
		})
		return
	}
	if ae.Kind == apierror.KindExternal {
		log.Printf("external error: %v", ae)
	}
	w.Header().Set("Content-Type", "application/json")
	if ae.Kind == apierror.KindRateLimited {
		w.Header().Set("Retry-After-Ms", strconv.Itoa(ae.RetryAfter))
	}
	JSON(w, ae.StatusCode(), errorBody{
		Error:       string(ae.Kind),
		Description: ae.Description,
		RetryAfter:  ae.RetryAfter,
	})
}

// Success writes a 200 OK response wrapping data directly (no success/data
// envelope — the response body IS the resource).
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response wrapping the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
