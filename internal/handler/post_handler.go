package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yatube/internal/form"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/service"
)

const (
	tmplIndex      = "posts/index.html"
	tmplGroupList  = "posts/group_list.html"
	tmplProfile    = "posts/profile.html"
	tmplPostDetail = "posts/post_detail.html"
	tmplCreatePost = "posts/create_post.html"
	tmplFollow     = "posts/follow.html"
)

type PostHandler struct {
	posts  *service.PostService
	feed   *service.FeedService
	groups *service.GroupService
	users  *service.UserService
}

func NewPostHandler(posts *service.PostService, feed *service.FeedService, groups *service.GroupService, users *service.UserService) *PostHandler {
	return &PostHandler{posts: posts, feed: feed, groups: groups, users: users}
}

// Index 首页，走缓存
func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.feed.Index(c.Request.Context(), c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, tmplIndex, gin.H{
		"title":    "Последние записи",
		"page_obj": page,
		"index":    true,
	})
}

// GroupPosts 社区帖子列表
func (h *PostHandler) GroupPosts(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.groups.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.posts.ByGroup(ctx, group.ID, c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, tmplGroupList, gin.H{
		"title":    "Записи сообщества",
		"group":    group,
		"page_obj": page,
	})
}

// Profile 作者主页，following 表示当前用户是否关注了该作者
func (h *PostHandler) Profile(c *gin.Context) {
	viewer, _ := middleware.UserID(c)
	profile, err := h.posts.Profile(c.Request.Context(), c.Param("username"), viewer, c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, tmplProfile, gin.H{
		"title":        "Профайл пользователя",
		"author":       profile.Author,
		"full_name":    profile.Author.FullName(),
		"page_obj":     profile.Page,
		"post_counter": profile.PostCounter,
		"following":    profile.Following,
	})
}

func (h *PostHandler) PostDetail(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	detail, err := h.posts.Detail(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	var f form.CommentForm
	render(c, http.StatusOK, tmplPostDetail, gin.H{
		"post":         detail.Post,
		"post_counter": detail.PostCounter,
		"form":         f.View(nil),
		"comments":     detail.Comments,
		"image_url":    detail.ImageURL,
	})
}

// CreateForm 空白的新建表单
func (h *PostHandler) CreateForm(c *gin.Context) {
	render(c, http.StatusOK, tmplCreatePost, gin.H{
		"form":    form.NewPostForm(nil).View(nil),
		"is_edit": false,
	})
}

// Create 作者取当前用户，成功后跳到作者主页
func (h *PostHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)

	var f form.PostForm
	errs, err := f.Bind(c, h.groups)
	if err != nil {
		fail(c, err)
		return
	}
	if !errs.Valid() {
		render(c, http.StatusBadRequest, tmplCreatePost, gin.H{
			"form":    f.View(errs),
			"is_edit": false,
		})
		return
	}

	if _, err = h.posts.Create(ctx, uid, &f); err != nil {
		fail(c, err)
		return
	}
	user, err := h.users.Get(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(user.Username))
}

// EditForm 只有作者能编辑，其他人静默跳回详情
func (h *PostHandler) EditForm(c *gin.Context) {
	post, ok := h.ownPost(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, tmplCreatePost, gin.H{
		"form":    form.NewPostForm(post).View(nil),
		"post":    post,
		"is_edit": true,
	})
}

func (h *PostHandler) Edit(c *gin.Context) {
	post, ok := h.ownPost(c)
	if !ok {
		return
	}

	var f form.PostForm
	errs, err := f.Bind(c, h.groups)
	if err != nil {
		fail(c, err)
		return
	}
	if !errs.Valid() {
		render(c, http.StatusBadRequest, tmplCreatePost, gin.H{
			"form":    f.View(errs),
			"post":    post,
			"is_edit": true,
		})
		return
	}

	if err = h.posts.Update(c.Request.Context(), post, &f); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, detailURL(post.ID))
}

// AddComment 校验失败直接丢弃，总是跳回详情
func (h *PostHandler) AddComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	post, err := h.posts.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}

	var f form.CommentForm
	if errs := f.Bind(c); errs.Valid() {
		if _, err = h.posts.AddComment(ctx, post, currentUser(c), &f); err != nil {
			fail(c, err)
			return
		}
	}
	c.Redirect(http.StatusFound, detailURL(post.ID))
}

// Delete 删除帖子及其评论
func (h *PostHandler) Delete(c *gin.Context) {
	post, ok := h.ownPost(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), post); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(post.Author.Username))
}

// FollowIndex 关注的作者的帖子
func (h *PostHandler) FollowIndex(c *gin.Context) {
	page, err := h.posts.Followed(c.Request.Context(), currentUser(c), c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, tmplFollow, gin.H{
		"title":     "Избранные авторы",
		"page_obj":  page,
		"following": true,
	})
}

// ownPost 取帖子并确认当前用户是作者；否则已经写好响应
func (h *PostHandler) ownPost(c *gin.Context) (*model.Post, bool) {
	id, ok := postID(c)
	if !ok {
		return nil, false
	}
	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	if post.AuthorID != currentUser(c) {
		c.Redirect(http.StatusFound, detailURL(post.ID))
		c.Abort()
		return nil, false
	}
	return post, true
}
