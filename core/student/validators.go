package student

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edupilot/core"
)

var (
	assessmentKeyTag  = "assessmentkey"
	assessmentKeyText = "{0} must be one of prova<N>, trabalho<N> or frequencia"
	assessmentKeyRe   = regexp.MustCompile(`^(prova|trabalho)[1-9][0-9]*$`)

	gradeRangeTag  = "graderange"
	gradeRangeText = "{0} must be a number between 0 and 10"

	attendanceRangeTag  = "attendancerange"
	attendanceRangeText = "{0} must be a number between 0 and 100"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(assessmentKeyTag, assessmentKeyValidation)
	core.RegisterCustomTranslation(validate, translator, assessmentKeyTag, assessmentKeyText)

	validate.RegisterStructValidation(attributesStructValidation, NewStudent{}, UpdateGrades{})
	core.RegisterCustomTranslation(validate, translator, gradeRangeTag, gradeRangeText)
	core.RegisterCustomTranslation(validate, translator, attendanceRangeTag, attendanceRangeText)
}

// IsAssessmentKey reports whether k may be written through the roster API.
func IsAssessmentKey(k string) bool {
	return k == AttrFrequencia || assessmentKeyRe.MatchString(k)
}

func assessmentKeyValidation(fl validator.FieldLevel) bool {
	return IsAssessmentKey(fl.Field().String())
}

func attributesStructValidation(sl validator.StructLevel) {
	var attrs map[string]interface{}
	switch v := sl.Current().Interface().(type) {
	case NewStudent:
		attrs = v.Attributes
	case UpdateGrades:
		attrs = v.Attributes
	}

	for k, v := range attrs {
		if v == nil || !IsAssessmentKey(k) {
			continue
		}
		field := fmt.Sprintf("extra.%s", k)
		num, ok := strictNumber(v)
		if k == AttrFrequencia {
			if !ok || num < 0 || num > 100 {
				sl.ReportError(v, field, field, attendanceRangeTag, "")
			}
		} else if !ok || num < 0 || num > 10 {
			sl.ReportError(v, field, field, gradeRangeTag, "")
		}
	}
}

// strictNumber accepts numbers and numeric strings only; unlike Coerce it reports garbage.
func strictNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64, float32, int, int32, int64:
		return Coerce(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(val)
		if strings.Contains(s, ",") && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}
