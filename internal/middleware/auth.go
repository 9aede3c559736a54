package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	ContextUserIDKey = "user_id"
	TokenCookie      = "token"
	LoginURL         = "/auth/login/"
)

// Authenticator 校验 token，返回用户 id
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

// Authenticate 只识别身份不拦截，匿名请求照常放行
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		userID, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			// token 失效或 redis 故障都按匿名处理
			log.WithError(err).Debug("authenticate failed")
			c.Next()
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// LoginRequired 未登录跳转登录页，带上 next
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// LoginRedirect 生成 /auth/login/?next=<path>，路径中的 / 不转义
func LoginRedirect(next string) string {
	q := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return LoginURL + "?next=" + q
}

// UserID 当前登录用户
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok && id != 0
}

// tokenFromRequest 优先 Authorization 头，其次 cookie
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	token, err := c.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return token
}
