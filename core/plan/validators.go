package plan

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edupilot/core"
)

var (
	tipoTag  = "tipo"
	tipoText = "{0} must be one of aula, prova, trabalho, revisao or recesso"

	requiredWithoutAllTag  = "required_without_all"
	requiredWithoutAllText = "provide files, a bibliography or links"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tipoTag, tipoValidation)
	core.RegisterCustomTranslation(validate, translator, tipoTag, tipoText)
	core.RegisterCustomTranslation(validate, translator, requiredWithoutAllTag, requiredWithoutAllText, true)
}

func tipoValidation(fl validator.FieldLevel) bool {
	return Tipo(strings.ToLower(fl.Field().String())).Valid()
}
