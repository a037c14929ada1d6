package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

const headerSessionID = "X-Session-ID"

const maxSessionIDLen = 128

var ErrSessionsDisabled = errors.New("session tokens are disabled")

// Sessions issues and verifies anonymous session tokens. The session id is the token subject.
// Without a secret no tokens are issued and clients identify themselves with X-Session-ID.
type Sessions struct {
	log    *logger.Logger
	secret []byte
	ttl    time.Duration
}

func NewSessions(log *logger.Logger, cfg config.SessionConfig) *Sessions {
	if log == nil {
		log = logger.Nop()
	}
	ttl := cfg.TTL.Duration
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{
		log:    log.With("Middleware", "Sessions"),
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		ttl:    ttl,
	}
}

func (s *Sessions) TokensEnabled() bool { return len(s.secret) > 0 }

// Issue starts a new session and returns its signed token.
func (s *Sessions) Issue() (sessionID, token string, expires time.Time, err error) {
	if !s.TokensEnabled() {
		return "", "", time.Time{}, ErrSessionsDisabled
	}
	sessionID = uuid.New().String()
	now := time.Now()
	expires = now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return sessionID, token, expires, nil
}

// Verify returns the session id carried by a valid token.
func (s *Sessions) Verify(tokenString string) (string, error) {
	if !s.TokensEnabled() {
		return "", ErrSessionsDisabled
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("invalid or expired session token")
	}
	return claims.Subject, nil
}

// RequireSession attaches the caller's session id to the request context.
func (s *Sessions) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := s.resolve(c)
		if err != nil {
			s.log.Debug("session rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithSessionID(c.Request.Context(), sessionID))
		c.Set("session_id", sessionID)
		c.Next()
	}
}

func (s *Sessions) resolve(c *gin.Context) (string, error) {
	if s.TokensEnabled() {
		tok := extractToken(c)
		if tok == "" {
			return "", fmt.Errorf("missing session token")
		}
		return s.Verify(tok)
	}
	sid := strings.TrimSpace(c.GetHeader(headerSessionID))
	if sid == "" {
		return "", fmt.Errorf("missing %s header", headerSessionID)
	}
	if len(sid) > maxSessionIDLen {
		return "", fmt.Errorf("%s header too long", headerSessionID)
	}
	return sid, nil
}

func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
