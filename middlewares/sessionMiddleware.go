package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/session"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// SessionMiddleware stamps the active representative on every request context. Handlers that
// need a session fail with a SESSION error when none is active.
func SessionMiddleware(holder *session.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if holder != nil {
			c.Request = c.Request.WithContext(holder.Context(c.Request.Context()))
		}
		c.Next()
	}
}

// CorrelationMiddleware generates a correlation id once per request, or keeps the caller's.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// ErrorLogger logs only requests that recorded errors.
func ErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"module":         "http",
				"path":           c.FullPath(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}
