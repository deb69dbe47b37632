package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

const (
	DefaultSessionCookie = "cdp_session"
	sessionIssuer        = "clinicaldash"
)

var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the payload of the session cookie. The token ID is the
// session ID; there is no user identity in it.
type SessionClaims struct {
	jwt.RegisteredClaims
}

type SessionConfig struct {
	Secret     []byte
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// SessionIssuer signs and verifies session cookies with HS256.
type SessionIssuer struct {
	cfg SessionConfig
	now func() time.Time
}

func NewSessionIssuer(cfg SessionConfig) *SessionIssuer {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &SessionIssuer{cfg: cfg, now: time.Now}
}

// CookieName returns the name of the session cookie.
func (s *SessionIssuer) CookieName() string {
	return s.cfg.CookieName
}

// Issue returns a signed token for sessionID.
func (s *SessionIssuer) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session ID it carries.
func (s *SessionIssuer) Parse(tokenStr string) (string, error) {
	claims, err := s.parseClaims(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// NeedsRefresh reports whether a token with these claims has less than half
// of its lifetime left. The stores extend a session on every access, so the
// cookie is re-issued before the browser drops it.
func (s *SessionIssuer) NeedsRefresh(claims *SessionClaims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(s.now()) < s.cfg.TTL/2
}

func (s *SessionIssuer) parseClaims(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (s *SessionIssuer) setCookie(c echo.Context, sessionID string) error {
	token, err := s.Issue(sessionID)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     s.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.TTL.Seconds()),
	})
	return nil
}

// SessionMiddleware resolves the caller's session from the signed cookie. A
// missing, expired or tampered cookie starts a fresh session; a cookie past
// half its lifetime is re-issued for the same session.
func SessionMiddleware(issuer *SessionIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if SessionSkipper(c) {
				return next(c)
			}

			var sessionID string
			refresh := true
			if cookie, err := c.Cookie(issuer.CookieName()); err == nil {
				if claims, err := issuer.parseClaims(cookie.Value); err == nil {
					sessionID = claims.ID
					refresh = issuer.NeedsRefresh(claims)
				}
			}
			if sessionID == "" {
				sessionID = uuid.New().String()
			}

			if refresh {
				if err := issuer.setCookie(c, sessionID); err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "could not start session")
				}
			}

			c.Set(string(SessionIDKey), sessionID)
			c.SetRequest(c.Request().WithContext(WithSessionID(c.Request().Context(), sessionID)))
			return next(c)
		}
	}
}

// WithSessionID stores a session ID on ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// SessionIDFromContext returns the session ID set by SessionMiddleware, or ""
// when there is none.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}
