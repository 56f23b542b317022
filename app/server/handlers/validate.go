package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type validationErrorResponse struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details"`
}

type Validator struct {
	v *validator.Validate
}

// NewValidator 构造挂到 echo 上的请求校验器。
// 字段名取 json tag ，这样 details 里的键和请求体保持一致。
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 密码策略：至少一个小写字母、一个大写字母、一个数字；长度由 min/max 单独限制
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		var hasLower, hasUpper, hasDigit bool
		for _, r := range fl.Field().String() {
			switch {
			case r >= 'a' && r <= 'z':
				hasLower = true
			case r >= 'A' && r <= 'Z':
				hasUpper = true
			case r >= '0' && r <= '9':
				hasDigit = true
			}
		}
		return hasLower && hasUpper && hasDigit
	})

	return &Validator{v: v}
}

func (val *Validator) Validate(i interface{}) error {
	return val.v.Struct(i)
}

// validationError 把校验失败映射成统一的 400 响应体。
func (a *App) validationError(c echo.Context, err error) error {
	details := make(map[string][]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = append(details[fe.Field()], fieldErrorMessage(fe))
		}
	}

	return c.JSON(http.StatusBadRequest, &validationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "strongpassword":
		return "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
