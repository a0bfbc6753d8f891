package ez

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"grafik/internal/domain"
)

// RegisterValidators 给 gin 的校验引擎加自定义规则；字段名取 form/json tag
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v.RegisterValidation("agency", func(fl validator.FieldLevel) bool {
		return domain.Agency(fl.Field().String()).IsValid()
	})
}
