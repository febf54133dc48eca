package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by SessionAuth for downstream handlers.
const (
	ContextSessionID = "session_id"
	ContextPrincipal = "principal"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "scrum_session"

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	})
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":      500,
				"message":   err.Error(),
				"timestamp": time.Now(),
			})
		}
	}
}

// SessionToken claims: the session ID travels inside a signed JWT so the
// browser cannot forge or tamper with it. The session record itself stays
// server-side.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSessionToken wraps a session ID in a signed token valid for ttl.
func SignSessionToken(sessionID, secret string, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ExtractSessionID pulls the session ID out of the request's bearer header or
// session cookie. Returns "" when no valid token is present.
func ExtractSessionID(c *gin.Context, secret string) string {
	tokenString := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	} else if cookie, err := c.Cookie(SessionCookie); err == nil {
		tokenString = cookie
	}
	if tokenString == "" {
		return ""
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.SessionID
}

// SessionAuth resolves the request's authentication state through the
// provider and rejects anonymous requests. The resolved principal and
// session ID are stored in the Gin context.
func SessionAuth(provider *auth.StateProvider, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ExtractSessionID(c, secret)

		state := provider.State(sessionID)
		if !state.Authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":      401,
				"message":   "Authorization required",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}

		c.Set(ContextSessionID, sessionID)
		c.Set(ContextPrincipal, state.Principal)
		c.Next()
	}
}

// RequireAdmin rejects requests whose principal does not hold the admin
// role. Must run after SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok || !principal.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":      403,
				"message":   "Admin role required",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by SessionAuth.
func CurrentPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := v.(auth.Principal)
	return principal, ok
}

// CurrentSessionID returns the session ID stored by SessionAuth.
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
