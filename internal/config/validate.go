package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationResult lists every rule a Config breaks.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

const tagCrudRequired = "crud_required"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			c := sl.Current().Interface().(Config)
			if c.GenerateCrud && len(c.CrudConfigs) == 0 {
				sl.ReportError(c.CrudConfigs, "crudConfigs", "CrudConfigs", tagCrudRequired, "")
			}
		}, Config{})
	})
	return validate
}

// Validate checks cfg and collects all violations instead of stopping at the
// first one.
func Validate(cfg *Config) ValidationResult {
	if cfg == nil {
		return ValidationResult{Errors: []string{"config is required"}}
	}
	res := ValidationResult{Valid: true, Errors: []string{}}
	err := validatorInstance().Struct(cfg)
	if err == nil {
		return res
	}
	res.Valid = false

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	for _, fe := range fieldErrs {
		res.Errors = append(res.Errors, message(fieldPath(fe.Namespace()), fe.Tag(), fe.Param()))
	}
	return res
}

// fieldPath drops the root struct name: Config.crudConfigs[0].basePath
// becomes crudConfigs[0].basePath.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case tagCrudRequired:
		return fmt.Sprintf("%s must not be empty when generateCrud is enabled", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
