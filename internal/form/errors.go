package form

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	MsgRequired      = "Обязательное поле."
	MsgInvalidChoice = "Выберите корректный вариант. Вашего варианта нет среди допустимых значений."
	MsgInvalidImage  = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	MsgInvalidSlug   = "Значение должно состоять только из латинских букв, цифр, знаков подчеркивания или дефиса."
	MsgInvalidEmail  = "Введите правильный адрес электронной почты."
	MsgInvalidName   = "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	MsgInvalid       = "Некорректное значение."

	// NonField 不属于某个字段的错误
	NonField = "__all__"
)

// Errors 字段 -> 错误信息
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

// FromBinding 把 gin 绑定/校验错误翻译成字段错误
func FromBinding(err error) Errors {
	errs := Errors{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		errs.Add(NonField, MsgInvalid)
		return errs
	}
	for _, fe := range ve {
		errs.Add(snake(fe.Field()), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return MsgRequired
	case "max":
		return fmt.Sprintf("Убедитесь, что это значение содержит не более %s символов.", fe.Param())
	case "min":
		return fmt.Sprintf("Убедитесь, что это значение содержит не менее %s символов.", fe.Param())
	case "slug":
		return MsgInvalidSlug
	case "username":
		return MsgInvalidName
	case "email":
		return MsgInvalidEmail
	}
	return MsgInvalid
}

func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
)

// ValidUsername 用户名只能是字母、数字和 @.+-_，否则 /profile/<username>/ 匹配不到
func ValidUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		return err
	}
	// 只有空白字符也算没填
	return v.RegisterValidation("notblank", validators.NotBlank)
}
