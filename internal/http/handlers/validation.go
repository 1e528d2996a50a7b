package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"resume_rewards/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator registers the domain tags and reports JSON field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("earn_kind", func(fl validator.FieldLevel) bool {
		return domain.EarnKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("spend_kind", func(fl validator.FieldLevel) bool {
		return domain.SpendKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseSocialPlatform(strings.ToLower(fl.Field().String()))
		return err == nil
	})
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePeriod(fl.Field().String())
		return err == nil
	})
}

type validationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bindError answers 400 with one entry per failing field.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	details := make([]validationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, validationDetail{Field: e.Field(), Message: validationMessage(e)})
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": details})
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "earn_kind", "spend_kind":
		return domain.ErrUnknownActivity.Error()
	case "platform":
		return domain.ErrUnknownPlatform.Error()
	case "period":
		return domain.ErrUnknownPeriod.Error()
	case "max":
		return "Must be at most " + e.Param()
	case "min", "gte":
		return "Must be at least " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	default:
		return "Invalid value"
	}
}
