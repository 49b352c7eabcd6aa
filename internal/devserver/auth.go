package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"pairchat/internal/config"
)

var errInvalidToken = errors.New("devserver: invalid token")

// generateToken mints the session bearer token for a guest.
func (s *Server) generateToken(guestID int64) (string, error) {
	claims := jwt.MapClaims{
		"guest_id": guestID,
		"exp":      time.Now().Add(config.SessionTokenTTL).Unix(),
		"iss":      "pairchat-devserver",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// parseToken validates a bearer token and returns the guest id it carries.
func (s *Server) parseToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}
	raw, ok := claims["guest_id"].(float64)
	if !ok {
		return 0, errInvalidToken
	}
	return int64(raw), nil
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for websocket clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// authGuest is the gin middleware resolving the bearer token to a guest
// record, stored in the context under "guest".
func (s *Server) authGuest(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization token missing"})
		return
	}
	guestID, err := s.parseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}
	guest, err := s.store.GetGuest(guestID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unknown guest"})
		return
	}
	c.Set("guest", guest)
	c.Next()
}

func currentGuest(c *gin.Context) *GuestRecord {
	return c.MustGet("guest").(*GuestRecord)
}
