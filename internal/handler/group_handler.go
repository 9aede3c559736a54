package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"yatube/internal/form"
	"yatube/internal/service"
)

type GroupHandler struct {
	svc *service.GroupService
}

type createGroupReq struct {
	Title       string `json:"title" form:"title" binding:"required,notblank,max=200"`
	Slug        string `json:"slug" form:"slug" binding:"required,max=50,slug"`
	Description string `json:"description" form:"description"`
}

func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// List 社区列表
func (h *GroupHandler) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create 新建社区，slug 重复返回 400
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": form.FromBinding(err)})
		return
	}

	group, err := h.svc.Create(c.Request.Context(),
		strings.TrimSpace(req.Title), req.Slug, strings.TrimSpace(req.Description))
	if errors.Is(err, service.ErrSlugTaken) {
		errs := form.Errors{}
		errs.Add("slug", "Группа с таким slug уже существует.")
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}
