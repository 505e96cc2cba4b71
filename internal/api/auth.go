package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a signed JWT. Credentials come from
// config; comparison is constant-time.
func (r *Router) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if r.cfg.AdminPassword == "" || r.cfg.AuthJWTSecret == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin_login_not_configured"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(r.cfg.AdminUser))
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(r.cfg.AdminPassword))
	if userOK != 1 || passOK != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(r.cfg.AuthJWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "bearer",
		"expires_in":   int(tokenTTL.Seconds()),
	})
}

// apiAuth protects the management API. A bearer token is accepted either as
// a JWT issued by Login or as the static admin API token; the static token
// is also accepted in X-Admin-Token.
func (r *Router) apiAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				provided = strings.TrimSpace(authHeader[7:])
			}
		}

		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if r.validJWT(provided) || r.validAdminToken(provided) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func (r *Router) validJWT(token string) bool {
	if r.cfg.AuthJWTSecret == "" {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(r.cfg.AuthJWTSecret), nil
	})
	return err == nil && parsed.Valid
}

func (r *Router) validAdminToken(token string) bool {
	expected := strings.TrimSpace(r.cfg.AdminAPIToken)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
