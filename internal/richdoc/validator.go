// Валидация запросов HTTP-интерфейса редактора. Использует go-playground/validator с
// собственными правилами для имен команд, событий указателя и ссылок.
package richdoc

import (
	"net/url"
	"regexp"
	"slices"

	"github.com/go-playground/validator"
)

var commandNameRegex = regexp.MustCompile(`^[a-z][a-zA-Z]{1,63}$`)

// pointerOps события указателя, которые принимает привязка размера.
var pointerOps = []string{"down", "move", "up", "cancel", "blur", "dblclick"}

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	err := v.RegisterValidation("commandName", commandNameValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("pointerOp", pointerOpValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("webURL", webURLValidator)
	if err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

func commandNameValidator(fl validator.FieldLevel) bool {
	return commandNameRegex.MatchString(fl.Field().String())
}

func pointerOpValidator(fl validator.FieldLevel) bool {
	return slices.Contains(pointerOps, fl.Field().String())
}

// webURLValidator только абсолютные http(s) ссылки
func webURLValidator(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
