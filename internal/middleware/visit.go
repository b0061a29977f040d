package middleware

import (
	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// VisitTracker records one visit per unique client. The identity is hashed
// before storage and recording happens off the request path.
func VisitTracker(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		userAgent := c.Request.UserAgent()

		go func() {
			if err := visitService.Record(clientIP, userAgent); err != nil {
				logger.WithError(err).Debug("failed to record visit")
			}
		}()

		c.Next()
	}
}
