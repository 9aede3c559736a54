package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yatube/internal/middleware"
	"yatube/internal/service"
)

const templateKey = "template"

// render 返回页面上下文，template 指明由哪个模板渲染
func render(c *gin.Context, status int, template string, ctx gin.H) {
	ctx[templateKey] = template
	c.JSON(status, ctx)
}

// fail 把服务层错误翻译成响应
func fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"msg": "not found"})
}

// NotFound 未注册的路由
func NotFound(c *gin.Context) {
	notFound(c)
}

// postID 非数字 id 和不存在的帖子一样是 404
func postID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		notFound(c)
		return 0, false
	}
	return id, true
}

// currentUser 路由已挂 LoginRequired 的处理函数里一定有值
func currentUser(c *gin.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func detailURL(id uint64) string {
	return fmt.Sprintf("/posts/%d/", id)
}
