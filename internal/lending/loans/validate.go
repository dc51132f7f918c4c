package loans

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators は binding タグ `ticket` を gin のバリデータに登録する。起動時に1回呼ぶ。
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("ticket", func(fl validator.FieldLevel) bool {
		return ValidTicket(fl.Field().String())
	})
}
