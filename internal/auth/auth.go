package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token's "type" claim, matching what the auth
// service signs into tokens at registration.
const (
	RoleUser      = "user"
	RoleResponder = "security"
)

const identityKey = "identity"

// Identity is the verified caller injected into the request context.
type Identity struct {
	ID   uint
	Role string
}

// Verifier turns a bearer token into an identity. Token issuance is the
// auth service's job; this service only verifies.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// JWTVerifier validates HS256 tokens sharing the auth service's secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return nil, fmt.Errorf("token missing id claim")
	}
	role, _ := claims["type"].(string)
	if role != RoleUser && role != RoleResponder {
		return nil, fmt.Errorf("token has unknown role %q", role)
	}
	return &Identity{ID: uint(id), Role: role}, nil
}

// Middleware authenticates the request and stores the identity in the
// gin context. Missing or bad tokens end the request with 401.
func Middleware(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization token"})
			return
		}
		identity, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(identityKey, identity)
		c.Set("identity_id", identity.ID)
		c.Next()
	}
}

// Require rejects callers whose role differs, with 403.
func Require(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil || identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the verified caller, or nil outside the
// middleware.
func CurrentIdentity(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}
