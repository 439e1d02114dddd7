package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

// RateLimit rejects clients that exceed the limiter's budget for scope, keyed by client IP.
func RateLimit(limiter *service.RateLimitService, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.ResetIn.Seconds()))))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
