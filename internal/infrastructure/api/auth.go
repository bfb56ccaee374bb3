package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

// AuthClient exchanges credentials at /api/auth/login.
type AuthClient struct {
	client *Client
}

func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"recordar"`
}

func (a *AuthClient) Login(ctx context.Context, username, password string, remember bool) (*domain.LoginResponse, error) {
	const op = "auth.login"
	body, err := json.Marshal(loginRequest{Username: username, Password: password, Remember: remember})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	var out domain.LoginResponse
	err = a.client.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.url("/auth/login"), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, func(resp *http.Response) error {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", op, err)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
		out.Raw = raw
		return nil
	})
	if err != nil {
		return nil, authError(err)
	}
	return &out, nil
}

func authError(err error) error {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return &domain.AuthError{Kind: domain.AuthServerError, Err: err}
	}
	switch statusErr.StatusCode {
	case http.StatusUnauthorized:
		return &domain.AuthError{Kind: domain.AuthInvalidCredentials, StatusCode: statusErr.StatusCode, Err: err}
	case http.StatusBadRequest:
		return &domain.AuthError{Kind: domain.AuthBadRequest, StatusCode: statusErr.StatusCode, Err: err}
	default:
		return &domain.AuthError{Kind: domain.AuthServerError, StatusCode: statusErr.StatusCode, Err: err}
	}
}
