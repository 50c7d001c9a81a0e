package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CommunicationError is shown when backend is unreachable.
const CommunicationError = "communication error with server"

// ErrorResponse represents non-2xx backend response.
type ErrorResponse struct {
	// Code contains HTTP status code.
	Code int `json:"-"`
	// Detail contains human-readable message.
	Detail string `json:"detail"`
}

// Error returns response error message.
func (r *ErrorResponse) Error() string {
	if len(r.Detail) == 0 {
		return fmt.Sprintf("unexpected status code %d", r.Code)
	}
	return r.Detail
}

// StatusCode returns HTTP status code of response.
func (r *ErrorResponse) StatusCode() int {
	return r.Code
}

func (r *ErrorResponse) UnmarshalJSON(data []byte) error {
	var resp struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	r.Detail = decodeDetail(resp.Detail)
	if len(r.Detail) == 0 {
		r.Detail = resp.Message
	}
	return nil
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeDetail flattens detail that is either a string or a list of
// validation errors.
func decodeDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var details []validationDetail
	if err := json.Unmarshal(raw, &details); err == nil {
		var parts []string
		for _, detail := range details {
			if len(detail.Msg) == 0 {
				continue
			}
			if n := len(detail.Loc); n > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", detail.Loc[n-1], detail.Msg))
			} else {
				parts = append(parts, detail.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}

// TransportError represents failure without backend response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", CommunicationError, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail returns human-readable message for error.
//
// Backend detail is preferred. Transport failures are reported as
// CommunicationError. Otherwise fallback is returned.
func Detail(err error, fallback string) string {
	var resp *ErrorResponse
	if errors.As(err, &resp) && len(resp.Detail) > 0 {
		return resp.Detail
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return CommunicationError
	}
	return fallback
}

// StatusCode returns HTTP status of error or zero.
func StatusCode(err error) int {
	var resp *ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}
	return 0
}
