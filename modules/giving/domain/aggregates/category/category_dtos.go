package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/intl"
	"github.com/dchoinie/church-membership-app-sub003/pkg/serrors"
)

type CreateDTO struct {
	Name     string `json:"name" validate:"required,max=255"`
	Position int    `json:"position" validate:"gte=0"`
	Active   *bool  `json:"active"`
}

type UpdateDTO struct {
	Name     string `json:"name" validate:"required,max=255"`
	Position int    `json:"position" validate:"gte=0"`
	Active   *bool  `json:"active"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validateCategoryDTO(ctx, d)
}

func (d *UpdateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *UpdateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validateCategoryDTO(ctx, d)
}

func validateCategoryDTO(ctx context.Context, dto any) (map[string]string, bool) {
	l, ok := intl.UseLocalizer(ctx)
	if !ok {
		panic(intl.ErrNoLocalizer)
	}

	errs := constants.Validate.Struct(dto)
	if errs == nil {
		return map[string]string{}, true
	}

	validatorErrs := errs.(validator.ValidationErrors)
	getFieldLocaleKey := func(field string) string {
		return fmt.Sprintf("Giving.Categories.Fields.%s", field)
	}
	validationErrors := serrors.ProcessValidatorErrors(validatorErrs, getFieldLocaleKey)

	return serrors.LocalizeValidationErrors(validationErrors, l), false
}
