package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/mindfeed-backend/internal/platform/ctxutil"
)

func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
