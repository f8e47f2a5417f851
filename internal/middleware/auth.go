package middleware

import (
	"context"
	"errors"
	"strings"
	"video_course_backend/internal/service"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenAuthenticator 由 AuthService 实现
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*util.Claims, error)
}

// AuthMiddleware 支持 Authorization 头，WebSocket 连接可以用 token 查询参数
func AuthMiddleware(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, util.ErrUnauthenticated) && !errors.Is(err, util.ErrTokenRevoked) {
				logger.Log.Error("Token check failed", zap.Error(err))
			}
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// AdminMiddleware 需要在 AuthMiddleware 之后使用
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if !user.IsAdmin {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext 未登录时返回零值 Actor，由服务层拒绝
func ActorFromContext(c *gin.Context) service.Actor {
	return service.ActorFromClaims(util.GetUserFromContext(c))
}
