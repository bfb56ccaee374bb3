package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Account struct {
	ID       int64
	Username string
	Password string
	FullName string
	Role     string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember *bool  `json:"recordar"`
}

// staffClaims are the claims of an issued staff token.
type staffClaims struct {
	Role string `json:"rol"`
	jwt.RegisteredClaims
}

type loginResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"usuarioId"`
	Username  string `json:"username"`
	FullName  string `json:"nombreCompleto"`
	Role      string `json:"rol"`
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tipoToken"`
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username y password son obligatorios")
		return
	}

	account, ok := rt.accounts[req.Username]
	if !ok || account.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Credenciales incorrectas")
		return
	}

	ttl := rt.tokenTTL
	if req.Remember != nil && !*req.Remember {
		ttl = rt.shortTokenTTL
	}
	now := rt.now()
	claims := staffClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(rt.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "no se pudo emitir el token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    account.ID,
		Username:  account.Username,
		FullName:  account.FullName,
		Role:      account.Role,
		ExpiresIn: int64(ttl / time.Second),
		TokenType: "Bearer",
	})
}

// requireBearer rejects staff requests without a valid, unexpired token.
func (rt *Router) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims := &staffClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return rt.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(rt.now),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if rec := recordFrom(r.Context()); rec != nil {
			rec.staff = claims.Subject
			rec.role = claims.Role
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(headerValue string) (string, bool) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token, token != ""
}
