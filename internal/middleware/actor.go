package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"rideshare/internal/domain"
)

const (
	actorKey         = "actor"
	actorIDHeader    = "X-Actor-ID"
	actorRoleHeader  = "X-Actor-Role"
	authorizationHdr = "Authorization"
)

var errInvalidToken = errors.New("invalid bearer token")

// ActorMiddleware resolves the caller of a request into a domain.Actor.
// With a secret it requires an HS256 bearer token carrying user_id and role claims;
// without one it trusts the X-Actor-ID and X-Actor-Role headers set by the gateway.
func ActorMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor domain.Actor
		if secret == "" {
			actor = domain.Actor{
				ID:   c.GetHeader(actorIDHeader),
				Role: parseRole(c.GetHeader(actorRoleHeader)),
			}
		} else {
			header := c.GetHeader(authorizationHdr)
			if header == "" {
				c.Next()
				return
			}
			parsed, err := parseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			actor = parsed
		}
		if actor.ID != "" {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// ActorFrom returns the actor resolved for the request, or the zero Actor.
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}

func parseToken(tokenString, secret string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, errInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return domain.Actor{}, fmt.Errorf("%w: user_id claim missing", errInvalidToken)
	}
	role, _ := claims["role"].(string)
	return domain.Actor{ID: userID, Role: parseRole(role)}, nil
}

// parseRole maps a role name onto a known role. Unknown names get no privileges.
func parseRole(s string) domain.Role {
	switch domain.Role(strings.ToLower(s)) {
	case domain.RoleAdmin:
		return domain.RoleAdmin
	case domain.RoleDriver:
		return domain.RoleDriver
	default:
		return domain.RolePassenger
	}
}
