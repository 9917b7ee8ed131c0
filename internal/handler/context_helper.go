package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/distrischool/student-service/internal/middleware"
	"github.com/distrischool/student-service/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return "system"
	}
	if subject := claims.Subject(); subject != "" {
		return subject
	}
	return claims.Email
}
