package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is set on tokens minted by GenerateToken.
const Issuer = "coursenotify"

const (
	contextKeyUserID = "user_id"
	contextKeyGroups = "tutorial_groups"

	// queryToken carries the bearer token for clients that cannot set
	// headers, i.e. browser websockets.
	queryToken = "access_token"
)

// Claims is the bearer token payload. UserID selects whose notifications and
// settings a request sees. TutorialGroups lists the groups whose group-scope
// notifications the user may read; the issuing platform vouches for it.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64   `json:"user_id"`
	Login          string  `json:"login,omitempty"`
	TutorialGroups []int64 `json:"tutorial_groups,omitempty"`
}

// GenerateToken signs an HS256 token for userID valid for ttl.
func GenerateToken(secret string, userID int64, login string, ttl time.Duration, groups ...int64) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		UserID:         userID,
		Login:          login,
		TutorialGroups: groups,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// JWTAuth rejects requests without a valid HS256 bearer token and stores
// the token's user ID and tutorial groups in the context. The token comes
// from the Authorization header or, when that is absent, the access_token
// query parameter.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			t, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				return
			}
			tokenString = t
		} else if tokenString = c.Query(queryToken); tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyGroups, claims.TutorialGroups)
		c.Next()
	}
}

// UserID returns the authenticated user, or 0 when JWTAuth did not run.
func UserID(c *gin.Context) int64 {
	v, _ := c.Get(contextKeyUserID)
	if id, ok := v.(int64); ok {
		return id
	}
	return 0
}

// TutorialGroups returns the authenticated user's tutorial groups.
func TutorialGroups(c *gin.Context) []int64 {
	v, _ := c.Get(contextKeyGroups)
	groups, _ := v.([]int64)
	return groups
}
