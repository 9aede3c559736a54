package form

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/internal/model"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type groupSet map[uint64]bool

func (g groupSet) Exists(_ context.Context, id uint64) (bool, error) {
	return g[id], nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func formContext(values url.Values) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func multipartContext(t *testing.T, fields map[string]string, image []byte) *gin.Context {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "small.gif")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/create/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	return c
}

func TestPostFormValid(t *testing.T) {
	c := multipartContext(t, map[string]string{"text": "  Тестовый текст1 ", "group": "3"}, smallGIF)

	var f PostForm
	errs, err := f.Bind(c, groupSet{3: true})
	require.NoError(t, err)
	assert.True(t, errs.Valid(), "%v", errs)
	assert.Equal(t, "Тестовый текст1", f.Text)
	require.NotNil(t, f.GroupID)
	assert.Equal(t, uint64(3), *f.GroupID)
	require.NotNil(t, f.Image)
	assert.Equal(t, "gif", f.Image.Format)

	post := &model.Post{ID: 9, AuthorID: 1}
	f.ApplyTo(post)
	assert.Equal(t, "Тестовый текст1", post.Text)
	assert.Equal(t, uint64(3), *post.GroupID)
	assert.Equal(t, uint64(1), post.AuthorID)
}

func TestPostFormErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		fields []string
	}{
		{"missing text", url.Values{}, []string{"text"}},
		{"blank text", url.Values{"text": {"   "}}, []string{"text"}},
		{"unknown group", url.Values{"text": {"x"}, "group": {"7"}}, []string{"group"}},
		{"bad group", url.Values{"text": {"x"}, "group": {"abc"}}, []string{"group"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f PostForm
			errs, err := f.Bind(formContext(tt.values), groupSet{3: true})
			require.NoError(t, err)
			assert.False(t, errs.Valid())
			for _, field := range tt.fields {
				assert.True(t, errs.Has(field), "expected error on %s: %v", field, errs)
			}
		})
	}
}

func TestPostFormRejectsBrokenImage(t *testing.T) {
	c := multipartContext(t, map[string]string{"text": "текст"}, []byte("definitely not an image"))

	var f PostForm
	errs, err := f.Bind(c, groupSet{})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgInvalidImage}, errs["image"])
	assert.Nil(t, f.Image)
}

func TestPostFormRebindDropsPrefill(t *testing.T) {
	f := NewPostForm(&model.Post{Text: "старый"})
	assert.Equal(t, "старый", f.Text)

	errs, err := f.Bind(formContext(url.Values{}), groupSet{})
	require.NoError(t, err)
	assert.True(t, errs.Has("text"))
}

func TestPostFormView(t *testing.T) {
	v := (&PostForm{}).View(nil)
	labels := map[string]string{}
	help := map[string]string{}
	for _, f := range v.Fields {
		labels[f.Name] = f.Label
		help[f.Name] = f.HelpText
	}
	assert.Equal(t, "Пост", labels["text"])
	assert.Equal(t, "группа:", labels["group"])
	assert.Equal(t, "Тут пишите буквы", help["text"])
	assert.Equal(t, "Выберите из доступных:", help["group"])
}

func TestCommentForm(t *testing.T) {
	var f CommentForm
	errs := f.Bind(formContext(url.Values{"text": {"Тестовый комментарий"}}))
	assert.True(t, errs.Valid())

	var comment model.Comment
	f.ApplyTo(&comment)
	assert.Equal(t, "Тестовый комментарий", comment.Text)

	errs = f.Bind(formContext(url.Values{"text": {""}}))
	assert.Equal(t, []string{MsgRequired}, errs["text"])
}

func TestSnake(t *testing.T) {
	assert.Equal(t, "first_name", snake("FirstName"))
	assert.Equal(t, "text", snake("Text"))
}

type slugReq struct {
	Slug string `json:"slug" binding:"required,slug"`
}

func TestSlugValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	for slug, ok := range map[string]bool{"test-slug": true, "test_2": true, "плохой": false, "a b": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"`+slug+`"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req slugReq
		err := c.ShouldBindJSON(&req)
		if ok {
			assert.NoError(t, err, slug)
		} else {
			require.Error(t, err, slug)
			assert.Equal(t, []string{MsgInvalidSlug}, FromBinding(err)["slug"])
		}
	}
}

type nameReq struct {
	Username string `json:"username" binding:"required,notblank,username"`
}

func TestUsernameValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	cases := map[string]string{
		"leo":       "",
		"Лев.2+x@y": "",
		" leo ":     "",
		"   ":       MsgRequired,
		"a/b":       MsgInvalidName,
		"a b":       MsgInvalidName,
	}
	for name, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"`+name+`"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req nameReq
		err := c.ShouldBindJSON(&req)
		if want == "" {
			assert.NoError(t, err, name)
		} else {
			require.Error(t, err, name)
			assert.Equal(t, []string{want}, FromBinding(err)["username"], name)
		}
	}
}
