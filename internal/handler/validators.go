package handler

import (
	"sync"

	"flowboard/internal/board"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator:
// "palette" accepts only column colors.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("palette", func(fl validator.FieldLevel) bool {
			return board.Color(fl.Field().String()).Valid()
		})
	})
}
