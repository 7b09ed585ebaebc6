package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain binding tags (bloodtype, urgency) to gin's
// validator and makes validation errors report JSON field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("bloodtype", func(fl validator.FieldLevel) bool {
			return models.ValidBloodType(fl.Field().String())
		})
		_ = v.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
			return models.Urgency(fl.Field().String()).Valid()
		})
	})
}

// bind decodes the request with gin's binding and reports the first failing
// field as a validation error. It writes the response itself on failure.
func bind(c *gin.Context, obj interface{}, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		utils.AppErrorResponse(c, bindError(err))
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	return bind(c, obj, binding.JSON)
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	return bind(c, obj, binding.Query)
}

func bindError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.Validation(fe.Field(), validationMessage(fe))
	}
	return apperror.Validation("body", "invalid request: "+err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "email address is not valid"
	case "latitude":
		return "latitude must be between -90 and 90"
	case "longitude":
		return "longitude must be between -180 and 180"
	case "bloodtype":
		return "blood type must be one of " + strings.Join(models.BloodTypes, ", ")
	case "urgency":
		return "urgency must be one of routine, urgent, emergency"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "len":
		return fe.Field() + " must be " + fe.Param() + " characters"
	case "numeric":
		return fe.Field() + " must contain only digits"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	}
	return fe.Field() + " is invalid"
}
