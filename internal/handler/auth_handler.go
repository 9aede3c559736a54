package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"yatube/internal/form"
	"yatube/internal/middleware"
	"yatube/internal/service"
)

const (
	tmplSignup    = "users/signup.html"
	tmplLogin     = "users/login.html"
	tmplLoggedOut = "users/logged_out.html"
)

type AuthHandler struct {
	svc          *service.UserService
	tokenTTL     time.Duration
	secureCookie bool
}

// SignupReq 注册表单
type SignupReq struct {
	FirstName string `form:"first_name" json:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" json:"last_name" binding:"max=150"`
	Username  string `form:"username" json:"username" binding:"required,notblank,max=150,username"`
	Email     string `form:"email" json:"email" binding:"omitempty,email"`
	Password  string `form:"password" json:"password" binding:"required,min=8"`
}

type LoginReq struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func NewAuthHandler(svc *service.UserService, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

func (h *AuthHandler) SignupForm(c *gin.Context) {
	render(c, http.StatusOK, tmplSignup, gin.H{"form": signupView(SignupReq{}, nil)})
}

// Signup 注册成功后跳到首页
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupReq
	if err := c.ShouldBind(&req); err != nil {
		render(c, http.StatusBadRequest, tmplSignup, gin.H{"form": signupView(req, form.FromBinding(err))})
		return
	}
	_, err := h.svc.Register(c.Request.Context(), service.SignupInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, service.ErrUsernameTaken) || errors.Is(err, service.ErrInvalidUsername) {
		errs := form.Errors{}
		if errors.Is(err, service.ErrUsernameTaken) {
			errs.Add("username", "Пользователь с таким именем уже существует.")
		} else {
			errs.Add("username", form.MsgInvalidName)
		}
		render(c, http.StatusBadRequest, tmplSignup, gin.H{"form": signupView(req, errs)})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, tmplLogin, gin.H{
		"form": loginView("", nil),
		"next": c.Query("next"),
	})
}

// Login 成功后写 cookie 并跳到 next
func (h *AuthHandler) Login(c *gin.Context) {
	next := c.Query("next")
	if v := c.PostForm("next"); v != "" {
		next = v
	}

	var req LoginReq
	if err := c.ShouldBind(&req); err != nil {
		render(c, http.StatusBadRequest, tmplLogin, gin.H{
			"form": loginView(req.Username, form.FromBinding(err)),
			"next": next,
		})
		return
	}
	token, _, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		errs := form.Errors{}
		errs.Add(form.NonField, "Пожалуйста, введите правильные имя пользователя и пароль.")
		render(c, http.StatusBadRequest, tmplLogin, gin.H{
			"form": loginView(req.Username, errs),
			"next": next,
		})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.tokenTTL.Seconds()), "/", "", h.secureCookie, true)
	c.Redirect(http.StatusFound, safeNext(next))
}

// Logout 匿名访问也返回退出页
func (h *AuthHandler) Logout(c *gin.Context) {
	if uid, ok := middleware.UserID(c); ok {
		if err := h.svc.Logout(c.Request.Context(), uid); err != nil {
			fail(c, err)
			return
		}
	}
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookie, true)
	render(c, http.StatusOK, tmplLoggedOut, gin.H{"title": "Вы вышли из системы"})
}

// safeNext 只允许站内路径
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func signupView(req SignupReq, errs form.Errors) form.View {
	return form.View{
		Fields: []form.Field{
			{Name: "first_name", Label: "Имя", Value: req.FirstName},
			{Name: "last_name", Label: "Фамилия", Value: req.LastName},
			{Name: "username", Label: "Имя пользователя", Required: true, Value: req.Username},
			{Name: "email", Label: "Адрес электронной почты", Value: req.Email},
			{Name: "password", Label: "Пароль", Required: true},
		},
		Errors: errs,
	}
}

func loginView(username string, errs form.Errors) form.View {
	return form.View{
		Fields: []form.Field{
			{Name: "username", Label: "Имя пользователя", Required: true, Value: username},
			{Name: "password", Label: "Пароль", Required: true},
		},
		Errors: errs,
	}
}
