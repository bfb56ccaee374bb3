package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer of the complaint API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "api status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("api %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("api %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ServerMessage extracts the {"error": "..."} explanation some endpoints
// return, if present.
func (e *HTTPStatusError) ServerMessage() string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(body.Message)
}

// countsAsFailure decides whether err should move the circuit breaker.
// Client-side rejections and cancellations do not.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isServerSideStatus(statusErr.StatusCode)
	}
	return true
}

func isServerSideStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= 500
	}
}

func isTemporary(err error) bool {
	if resilience.IsCircuitOpen(err) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isServerSideStatus(statusErr.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// rejectRule tells which non-2xx answers count as a server rejection
// rather than a network or server failure.
type rejectRule int

const (
	neverRejected rejectRule = iota
	rejectedOnStatus
	rejectedOnServerMessage
)

// gatewayError converts a transport failure into the domain taxonomy.
func gatewayError(operation string, err error, rule rejectRule) error {
	if err == nil {
		return nil
	}
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}

	out := &domain.GatewayError{
		Kind:      domain.GatewayNetworkOrServer,
		Operation: operation,
		Err:       err,
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode
		out.Message = statusErr.ServerMessage()
		switch rule {
		case rejectedOnStatus:
			out.Kind = domain.GatewayRejected
		case rejectedOnServerMessage:
			if out.Message != "" {
				out.Kind = domain.GatewayRejected
			}
		}
	}

	if isTemporary(err) {
		return domain.WrapError(domain.ErrTemporary, operation, out)
	}
	return out
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if resilience.IsCircuitOpen(err) {
		return "circuit_open"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	}
	return "transport_error"
}
