package permitnav

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors mapped from API responses. Use errors.Is() to check.
var (
	ErrInvalidQuery  = errors.New("permitnav: invalid query")
	ErrQuotaExceeded = errors.New("permitnav: daily quota exceeded")
	ErrUnavailable   = errors.New("permitnav: service unavailable")
	ErrUnauthorized  = errors.New("permitnav: unauthorized")
)

// APIError carries the raw error payload from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// ResetsAt is set on quota errors: when the daily counter rolls over.
	ResetsAt time.Time

	sentinel error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("permitnav: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.sentinel }

func errorFromResponse(resp *http.Response) error {
	var payload struct {
		Code     string    `json:"code"`
		Message  string    `json:"message"`
		ResetsAt time.Time `json:"resets_at"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       payload.Code,
		Message:    payload.Message,
		ResetsAt:   payload.ResetsAt,
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.sentinel = ErrInvalidQuery
	case http.StatusUnauthorized:
		apiErr.sentinel = ErrUnauthorized
	case http.StatusTooManyRequests:
		apiErr.sentinel = ErrQuotaExceeded
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		apiErr.sentinel = ErrUnavailable
	}
	return apiErr
}
