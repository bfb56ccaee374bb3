package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrAuth         = errors.New("authentication failed")
	ErrGateway      = errors.New("gateway failure")
	ErrSubmission   = errors.New("submission failed")
	ErrStaging      = errors.New("evidence staging rejected")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Localizable errors carry a catalog key and the parameters needed to render a
// single-line user message.
type Localizable interface {
	MessageKey() string
	MessageParams() map[string]string
}

type ValidationRule string

const (
	RuleRequired          ValidationRule = "required"
	RuleFutureDate        ValidationRule = "future_date"
	RuleUnknownType       ValidationRule = "unknown_type"
	RuleUnknownDepartment ValidationRule = "unknown_department"
	RuleUnknownStatus     ValidationRule = "unknown_status"
	RuleUnknownFilter     ValidationRule = "unknown_filter"
)

// ValidationError is raised locally, before any network call.
type ValidationError struct {
	Field string
	Rule  ValidationRule
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Rule)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) MessageKey() string {
	return "validation." + e.Field + "." + string(e.Rule)
}

func (e *ValidationError) MessageParams() map[string]string {
	return map[string]string{"field": e.Field}
}

type AuthErrorKind string

const (
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthBadRequest         AuthErrorKind = "bad_request"
	AuthServerError        AuthErrorKind = "server_error"
)

type AuthError struct {
	Kind       AuthErrorKind
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	msg := "auth: " + string(e.Kind)
	if e.Kind == AuthServerError && e.StatusCode != 0 {
		msg += " (" + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	if target == ErrAuth {
		return true
	}
	return target == ErrUnauthorized && e.Kind == AuthInvalidCredentials
}

func (e *AuthError) MessageKey() string { return "auth." + string(e.Kind) }

func (e *AuthError) MessageParams() map[string]string {
	return map[string]string{"status": strconv.Itoa(e.StatusCode)}
}

type GatewayErrorKind string

const (
	GatewayRejected        GatewayErrorKind = "rejected"
	GatewayNetworkOrServer GatewayErrorKind = "network_or_server"
)

type GatewayError struct {
	Kind       GatewayErrorKind
	Operation  string
	StatusCode int
	// Message is the server-provided explanation, when there is one.
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString("gateway ")
	b.WriteString(e.Operation)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		b.WriteString(" (status ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrGateway:
		return true
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	default:
		return false
	}
}

func (e *GatewayError) MessageKey() string { return "gateway." + string(e.Kind) }

func (e *GatewayError) MessageParams() map[string]string {
	return map[string]string{"message": e.Message, "operation": e.Operation}
}

type SubmissionErrorKind string

const (
	SubmissionCreateFailed   SubmissionErrorKind = "create_failed"
	SubmissionEvidenceFailed SubmissionErrorKind = "evidence_failed"
)

// SubmissionError is returned by the submission workflow. With
// SubmissionEvidenceFailed the complaint already exists on the server and
// Complaint/TrackingCode are set.
type SubmissionError struct {
	Kind         SubmissionErrorKind
	TrackingCode string
	Complaint    *Complaint
	Err          error
}

func (e *SubmissionError) Error() string {
	msg := "submission: " + string(e.Kind)
	if e.TrackingCode != "" {
		msg += " (tracking code " + e.TrackingCode + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) MessageKey() string { return "submission." + string(e.Kind) }

func (e *SubmissionError) MessageParams() map[string]string {
	return map[string]string{"code": e.TrackingCode}
}

type StagingErrorKind string

const (
	StagingTooMany     StagingErrorKind = "too_many"
	StagingInvalidType StagingErrorKind = "invalid_type"
	StagingTooLarge    StagingErrorKind = "too_large"
	StagingClosed      StagingErrorKind = "closed"
)

type StagingError struct {
	Kind StagingErrorKind
	// Limit is the configured bound that was exceeded (count or bytes).
	Limit int64
	// Files names the offending files, when the rule is per file.
	Files []string
}

func (e *StagingError) Error() string {
	msg := "staging: " + string(e.Kind)
	if e.Limit > 0 {
		msg += " (limit " + strconv.FormatInt(e.Limit, 10) + ")"
	}
	if len(e.Files) > 0 {
		msg += ": " + strings.Join(e.Files, ", ")
	}
	return msg
}

func (e *StagingError) Is(target error) bool { return target == ErrStaging }

func (e *StagingError) MessageKey() string { return "staging." + string(e.Kind) }

func (e *StagingError) MessageParams() map[string]string {
	limit := strconv.FormatInt(e.Limit, 10)
	if e.Kind == StagingTooLarge {
		limit = FormatSize(e.Limit)
	}
	return map[string]string{"limit": limit, "files": strings.Join(e.Files, ", ")}
}
