package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"yatube/internal/service"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

// Follow 关注；关注自己或重复关注都只是跳回主页
func (h *FollowHandler) Follow(c *gin.Context) {
	username := c.Param("username")
	_, err := h.svc.Follow(c.Request.Context(), currentUser(c), username)
	if err != nil && !errors.Is(err, service.ErrSelfFollow) {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}

// Unfollow 取消关注，幂等
func (h *FollowHandler) Unfollow(c *gin.Context) {
	username := c.Param("username")
	_, err := h.svc.Unfollow(c.Request.Context(), currentUser(c), username)
	if err != nil && !errors.Is(err, service.ErrSelfFollow) {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}
