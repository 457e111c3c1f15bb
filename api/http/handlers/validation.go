package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/authflow/api/http/presenter"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// max counts runes; bcrypt limits bytes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate runs struct rules and maps every failing field to its human message.
// A "field.tag" key overrides the per-field message for one rule.
func validate(v *validator.Validate, req any, messages map[string]string) []presenter.FieldError {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []presenter.FieldError{{Message: err.Error()}}
	}
	out := make([]presenter.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[fe.Field()]
		}
		if !ok {
			msg = fe.Error()
		}
		out = append(out, presenter.FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// bindJSON decodes a JSON body into req. Bodies that are empty or not sent as
// JSON leave req zero-valued so field validation reports what is missing.
func bindJSON(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 || !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		return nil
	}
	return c.BodyParser(req)
}
