package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"employee-monitor/internal/models"
	"employee-monitor/internal/store"
)

const employeeContextKey = "employee"

// CORS answers preflights and allows any calling origin, matching the
// agent protocol's open-origin contract.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, content-type, x-api-key")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// APIKeyAuth resolves the x-api-key header to an employee and aborts with
// 401 before any other processing when it is missing or unknown.
func APIKeyAuth(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("x-api-key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			return
		}

		employee, err := st.ResolveAPIKey(apiKey)
		if err != nil {
			if errors.Is(err, store.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.Set(employeeContextKey, employee)
		c.Next()
	}
}

func currentEmployee(c *gin.Context) *models.Employee {
	return c.MustGet(employeeContextKey).(*models.Employee)
}

// AdminAuth guards the operator API with a static bearer token. An empty
// token disables the check; operator identity proper lives in an external
// auth layer in front of this server.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if strings.TrimPrefix(header, "Bearer ") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin token"})
			return
		}
		c.Next()
	}
}
