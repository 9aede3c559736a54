package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"yatube/internal/form"
	"yatube/internal/handler"
	"yatube/internal/middleware"
	"yatube/internal/pkg"
	"yatube/internal/service"
)

// Deps 路由需要的外部依赖
type Deps struct {
	DB            *gorm.DB
	Redis         *goredis.Client
	Store         service.ImageStore
	Tokens        *pkg.TokenIssuer
	PostsPerPage  int
	IndexCacheTTL time.Duration
	SecureCookie  bool
}

func New(d Deps) (*gin.Engine, error) {
	if err := form.RegisterValidators(); err != nil {
		return nil, err
	}

	users := service.NewUserService(d.DB, d.Redis, d.Tokens)
	groups := service.NewGroupService(d.DB, d.PostsPerPage)
	posts := service.NewPostService(d.DB, d.Store, d.PostsPerPage)
	feed := service.NewFeedService(d.DB, d.Redis, d.IndexCacheTTL, d.PostsPerPage)
	follows := service.NewFollowService(d.DB)

	post := handler.NewPostHandler(posts, feed, groups, users)
	follow := handler.NewFollowHandler(follows)
	group := handler.NewGroupHandler(groups)
	auth := handler.NewAuthHandler(users, d.Tokens.TTL(), d.SecureCookie)
	health := handler.NewHealthHandler(d.DB, d.Redis)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(), middleware.Metrics(), middleware.Authenticate(users))
	r.NoRoute(handler.NotFound)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", health.Health)

	// 公开页面
	r.GET("/", post.Index)
	r.GET("/group/:slug/", post.GroupPosts)
	r.GET("/profile/:username/", post.Profile)
	r.GET("/posts/:id/", post.PostDetail)

	// 需要登录的页面
	login := r.Group("/", middleware.LoginRequired())
	{
		login.GET("/create/", post.CreateForm)
		login.POST("/create/", post.Create)
		login.GET("/posts/:id/edit/", post.EditForm)
		login.POST("/posts/:id/edit/", post.Edit)
		login.POST("/posts/:id/comment/", post.AddComment)
		login.POST("/posts/:id/delete/", post.Delete)
		login.GET("/follow/", post.FollowIndex)
		login.GET("/profile/:username/follow/", follow.Follow)
		login.GET("/profile/:username/unfollow/", follow.Unfollow)
	}

	// 账号
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/signup/", auth.SignupForm)
		authGroup.POST("/signup/", auth.Signup)
		authGroup.GET("/login/", auth.LoginForm)
		authGroup.POST("/login/", auth.Login)
		authGroup.GET("/logout/", auth.Logout)
		authGroup.POST("/logout/", auth.Logout)
	}

	// 社区接口
	api := r.Group("/api/groups")
	{
		api.GET("/", group.List)
		api.POST("/", middleware.LoginRequired(), group.Create)
	}

	return r, nil
}
