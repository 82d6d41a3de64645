package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model"
	"github.com/qs3c/localdeals_server/internal/pkg/jwt"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	ActorKey  = "actor"
)

// ActorLoader 按用户 ID 加载身份，账号不存在或已停用时返回错误
type ActorLoader interface {
	LoadActor(userID int64) (*model.Actor, error)
}

// Auth JWT 认证中间件，通过后在上下文中保存 Actor
func Auth(jwtSecret string, loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.AuthError(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		actor, err := loader.LoadActor(claims.UserID)
		if err != nil {
			response.AuthError(c, "account not found or disabled")
			c.Abort()
			return
		}

		c.Set(UserIDKey, actor.ID)
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string, loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err == nil {
			if actor, err := loader.LoadActor(claims.UserID); err == nil {
				c.Set(UserIDKey, actor.ID)
				c.Set(ActorKey, actor)
			}
		}

		c.Next()
	}
}

// RequireRole 必须在 Auth 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		response.PermissionError(c, "your account cannot access this resource")
		c.Abort()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetActor 从上下文获取当前身份
func GetActor(c *gin.Context) (*model.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return nil, false
	}
	actor, ok := v.(*model.Actor)
	return actor, ok && actor != nil
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", false
	}
	return token, true
}
