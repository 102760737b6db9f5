package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrServer       = errors.New("server error")
)

// Kind classifies a normalized failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindTransport
	KindNotFound
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

const (
	networkErrorMessage     = "network error"
	unavailableMessage      = "service temporarily unavailable"
	malformedPayloadMessage = "malformed response payload"
)

// APIError is the single error shape produced by the gateway.
type APIError struct {
	// Message is the remote-reported message, or a generic fallback.
	Message string
	// StatusCode is the HTTP status; zero for transport failures.
	StatusCode int
	Kind       Kind
	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Is lets errors.Is match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindAuth
	case ErrUnavailable:
		return e.Kind == KindTransport
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// Message returns the user-displayable message of err: the APIError message
// when there is one, err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransport
	}
	if status >= 500 {
		return KindServer
	}
	return KindUnknown
}

// statusError normalizes a non-2xx response.
func statusError(status int, body []byte) *APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Message: msg, StatusCode: status, Kind: kindForStatus(status)}
}

// transportError normalizes a failure that produced no response.
func transportError(err error) *APIError {
	return &APIError{Message: networkErrorMessage, Kind: KindTransport, Err: err}
}

// extractMessage pulls a human message out of an error body. It understands
// {"error": ..}, {"detail": ..}, {"message": ..}, {"non_field_errors": [..]},
// field-error objects {"field": ["msg"]} and bare ["msg"] lists. Anything
// else yields "".
func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []any
		if json.Unmarshal(body, &list) == nil {
			return firstString(list)
		}
		return ""
	}

	for _, k := range []string{"error", "detail", "message", "non_field_errors"} {
		if s := firstString(obj[k]); s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(obj[k]); s != "" {
			return k + ": " + s
		}
	}
	return ""
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}
