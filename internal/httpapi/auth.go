package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/service"
)

const tokenIssuer = "fptmart"

var (
	errMissingToken           = errors.New("missing bearer token")
	errInvalidToken           = errors.New("invalid or expired token")
	errPasswordChangeRequired = errors.New("password change required")
)

// AuthManager issues and verifies the HS256 access tokens handed out at login.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	UserID         string   `json:"uid"`
	Roles          []string `json:"roles"`
	PasswordChange bool     `json:"pwd_change,omitempty"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Issue signs a token for user. Accounts with a pending password change get
// a token that only unlocks the change-password flow.
func (a *AuthManager) Issue(user domain.UserAccount) (domain.LoginResponse, error) {
	issuedAt := a.now().UTC()
	expiresAt := issuedAt.Add(a.tokenTTL)
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwtlib.NewNumericDate(issuedAt),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		UserID:         user.ID,
		Roles:          user.Roles,
		PasswordChange: user.MustChangePassword,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	user.PasswordHash = ""
	return domain.LoginResponse{
		AccessToken:           token,
		ExpiresAt:             expiresAt.Format(time.RFC3339),
		User:                  user,
		RequirePasswordChange: user.MustChangePassword,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.UserID == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{
		UserID:             claims.UserID,
		Username:           sub,
		Roles:              claims.Roles,
		MustChangePassword: claims.PasswordChange,
	}, nil
}

// authenticate verifies the bearer token and attaches the account's current
// roles to the request context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errMissingToken)
			return
		}

		actor, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		actor, err = a.service.RefreshActor(r.Context(), actor)
		switch {
		case errors.Is(err, service.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, err)
			return
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, errInvalidToken)
			return
		case err != nil:
			a.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

// requirePasswordCurrent blocks tokens issued while a password change was
// still pending.
func (a *API) requirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := service.ActorFromContext(r.Context())
		if ok && actor.MustChangePassword {
			writeError(w, http.StatusForbidden, errPasswordChangeRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err)
		return
	case errors.Is(err, service.ErrUnauthorized):
		a.logger.InfoContext(r.Context(), "login rejected", slog.String("username", strings.TrimSpace(req.Username)), slog.String("reason", err.Error()))
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}

	resp, err := a.auth.Issue(user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":                    user,
		"require_password_change": actor.MustChangePassword,
	})
}

// handleChangePassword swaps the password and returns a fresh token without
// the pending-change restriction.
func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.ChangePassword(r.Context(), req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.auth.Issue(user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
