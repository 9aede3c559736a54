package form

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"yatube/internal/model"
	"yatube/internal/pkg"
)

// Field 渲染表单需要的字段信息
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	HelpText string `json:"help_text,omitempty"`
	Required bool   `json:"required"`
	Value    any    `json:"value,omitempty"`
}

// View 表单交给渲染层的样子
type View struct {
	Fields []Field `json:"fields"`
	Errors Errors  `json:"errors,omitempty"`
}

// GroupChecker 校验所选社区是否存在
type GroupChecker interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// Image 校验通过的上传图片
type Image struct {
	Data        []byte
	Format      string
	ContentType string
}

type PostForm struct {
	Text  string `form:"text" json:"text" binding:"required"`
	Group string `form:"group" json:"group"`

	GroupID *uint64 `form:"-" json:"-"`
	Image   *Image  `form:"-" json:"-"`
}

// NewPostForm 用已有帖子预填表单
func NewPostForm(post *model.Post) *PostForm {
	f := &PostForm{}
	if post != nil {
		f.Text = post.Text
		f.GroupID = post.GroupID
		if post.GroupID != nil {
			f.Group = strconv.FormatUint(*post.GroupID, 10)
		}
	}
	return f
}

// Bind 绑定并校验请求；返回的 error 只表示基础设施故障
func (f *PostForm) Bind(c *gin.Context, groups GroupChecker) (Errors, error) {
	*f = PostForm{}
	errs := Errors{}
	if err := c.ShouldBind(f); err != nil {
		errs = FromBinding(err)
	}

	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" && !errs.Has("text") {
		errs.Add("text", MsgRequired)
	}

	if f.Group = strings.TrimSpace(f.Group); f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil {
			errs.Add("group", MsgInvalidChoice)
		} else {
			ok, err := groups.Exists(c.Request.Context(), id)
			if err != nil {
				return nil, err
			}
			if ok {
				f.GroupID = &id
			} else {
				errs.Add("group", MsgInvalidChoice)
			}
		}
	}

	if fh, err := c.FormFile("image"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()
		data, format, contentType, err := pkg.CheckImage(file)
		if err != nil {
			errs.Add("image", MsgInvalidImage)
		} else {
			f.Image = &Image{Data: data, Format: format, ContentType: contentType}
		}
	}
	return errs, nil
}

// ApplyTo 把校验后的字段写到帖子上，不落库
func (f *PostForm) ApplyTo(post *model.Post) {
	post.Text = f.Text
	post.GroupID = f.GroupID
}

func (f *PostForm) View(errs Errors) View {
	return View{
		Fields: []Field{
			{Name: "text", Label: "Пост", HelpText: "Тут пишите буквы", Required: true, Value: f.Text},
			{Name: "group", Label: "группа:", HelpText: "Выберите из доступных:", Value: f.Group},
			{Name: "image", Label: "Картинка"},
		},
		Errors: errs,
	}
}

type CommentForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

func (f *CommentForm) Bind(c *gin.Context) Errors {
	*f = CommentForm{}
	errs := Errors{}
	if err := c.ShouldBind(f); err != nil {
		errs = FromBinding(err)
	}
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" && !errs.Has("text") {
		errs.Add("text", MsgRequired)
	}
	return errs
}

func (f *CommentForm) ApplyTo(c *model.Comment) {
	c.Text = f.Text
}

func (f *CommentForm) View(errs Errors) View {
	return View{
		Fields: []Field{
			{Name: "text", Label: "Текст комментария", HelpText: "Напишите комментарий", Required: true, Value: f.Text},
		},
		Errors: errs,
	}
}
