package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

// Durable storage keys of the session.
const (
	SessionKeyToken         = "token"
	SessionKeyUser          = "user"
	SessionKeyLoginResponse = "loginResponse"
)

// CredentialStore is the only owner of the persisted session. It is built
// once and handed to every component that needs the token.
type CredentialStore struct {
	auth    ports.Authenticator
	storage ports.SessionStorage
	now     func() time.Time
}

func NewCredentialStore(auth ports.Authenticator, storage ports.SessionStorage) *CredentialStore {
	return &CredentialStore{
		auth:    auth,
		storage: storage,
		now:     time.Now,
	}
}

func (s *CredentialStore) Login(ctx context.Context, username, password string, remember bool) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Rule: domain.RuleRequired}
	}
	if password == "" {
		return nil, &domain.ValidationError{Field: "password", Rule: domain.RuleRequired}
	}

	resp, err := s.auth.Login(ctx, username, password, remember)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, &domain.AuthError{Kind: domain.AuthServerError, Err: err}
	}
	if resp == nil || resp.Token == "" {
		return nil, &domain.AuthError{Kind: domain.AuthServerError, Err: errors.New("login response without token")}
	}

	user := resp.User()
	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	raw := resp.Raw
	if len(raw) == 0 {
		if raw, err = json.Marshal(resp); err != nil {
			return nil, fmt.Errorf("marshal login response: %w", err)
		}
	}

	if err := s.storage.Set(ctx, SessionKeyToken, resp.Token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(ctx, SessionKeyUser, string(userJSON)); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}
	if err := s.storage.Set(ctx, SessionKeyLoginResponse, string(raw)); err != nil {
		return nil, fmt.Errorf("persist login response: %w", err)
	}

	return &domain.Session{
		Token:     resp.Token,
		User:      user,
		ExpiresIn: resp.ExpiresIn,
		TokenType: resp.TokenType,
	}, nil
}

// Logout clears every persisted key. Calling it without a session is fine.
func (s *CredentialStore) Logout(ctx context.Context) error {
	if err := s.storage.Delete(ctx, SessionKeyToken, SessionKeyUser, SessionKeyLoginResponse); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is stored and not expired. A token
// whose expiry cannot be decoded is accepted.
func (s *CredentialStore) IsAuthenticated(ctx context.Context) bool {
	token, ok := s.Token(ctx)
	if !ok {
		return false
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return true
	}
	return exp.After(s.now())
}

func (s *CredentialStore) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.storage.Get(ctx, SessionKeyToken)
	if err != nil || !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *CredentialStore) CurrentUser(ctx context.Context) (*domain.User, bool) {
	raw, ok, err := s.storage.Get(ctx, SessionKeyUser)
	if err != nil || !ok || raw == "" {
		return nil, false
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false
	}
	return &user, true
}

// AuthHeaders are the headers of a JSON request.
func (s *CredentialStore) AuthHeaders(ctx context.Context) http.Header {
	h := s.MultipartAuthHeaders(ctx)
	h.Set("Content-Type", "application/json")
	return h
}

// MultipartAuthHeaders leave the content type to the multipart writer.
func (s *CredentialStore) MultipartAuthHeaders(ctx context.Context) http.Header {
	h := http.Header{}
	if token, ok := s.Token(ctx); ok {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
