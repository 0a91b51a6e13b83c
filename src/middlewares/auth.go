package middlewares

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"mazza/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// AuthMiddleware accepts HS256 bearer tokens whose subject is the caller's id.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || strings.TrimSpace(reqToken) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": "UNAUTHENTICATED"})
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			log.Printf("token error: %s\n", err.Error())
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHENTICATED"})
			return
		}
		if !tkn.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHENTICATED"})
			return
		}
		uid, err := uuid.Parse(claims.Subject)
		if err != nil {
			log.Println("error parsing claims:", err.Error())
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid subject", "code": "UNAUTHENTICATED"})
			return
		}
		ctx.Set(userIDKey, uid)
		ctx.Set(roleKey, claims.Role)
		ctx.Next()
	}
}

// ActorID returns the authenticated caller. It is uuid.Nil outside AuthMiddleware.
func ActorID(ctx *gin.Context) uuid.UUID {
	v, ok := ctx.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "no-referrer")
	ctx.Next()
}
