// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"budgetbook/internal/models"
	"budgetbook/internal/uuid"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("budget_name", validateBudgetName)
	_ = v.RegisterValidation("description", validateDescription)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("uuid_list", validateUUIDList)
}

// validateBudgetName requires a name that is non-empty after trimming and
// no longer than the column allows.
func validateBudgetName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	return name != "" && utf8.RuneCountInString(name) <= models.MaxBudgetNameLength
}

func validateDescription(fl validator.FieldLevel) bool {
	desc := strings.TrimSpace(fl.Field().String())
	return desc != "" && utf8.RuneCountInString(desc) <= models.MaxDescriptionLength
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateUUIDList requires every element of a string slice to be a UUID.
// An empty slice passes; pair it with min=1 when at least one is needed.
func validateUUIDList(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, id := range ids {
		if !uuid.IsValid(id) {
			return false
		}
	}
	return true
}
