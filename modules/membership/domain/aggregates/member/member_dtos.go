package member

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
	FirstName      string `json:"first_name" validate:"required"`
	MiddleName     string `json:"middle_name"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	EnvelopeNumber *int   `json:"envelope_number" validate:"omitempty,gte=0"`
	HouseholdID    string `json:"household_id" validate:"omitempty,uuid"`
	Sex            string `json:"sex" validate:"omitempty,oneof=male female"`
	DateOfBirth    string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Sequence       string `json:"sequence" validate:"omitempty,oneof=head_of_house spouse child other"`
	Participation  string `json:"participation" validate:"omitempty,oneof=communicant non_communicant baptized inactive"`
	ReceivedBy     string `json:"received_by"`
	ReceivedDate   string `json:"received_date" validate:"omitempty,datetime=2006-01-02"`
	RemovedBy      string `json:"removed_by"`
	RemovedDate    string `json:"removed_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateDTO struct {
	FirstName      string `json:"first_name" validate:"required"`
	MiddleName     string `json:"middle_name"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	EnvelopeNumber *int   `json:"envelope_number" validate:"omitempty,gte=0"`
	HouseholdID    string `json:"household_id" validate:"omitempty,uuid"`
	Sex            string `json:"sex" validate:"omitempty,oneof=male female"`
	DateOfBirth    string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Sequence       string `json:"sequence" validate:"omitempty,oneof=head_of_house spouse child other"`
	Participation  string `json:"participation" validate:"omitempty,oneof=communicant non_communicant baptized inactive"`
	ReceivedBy     string `json:"received_by"`
	ReceivedDate   string `json:"received_date" validate:"omitempty,datetime=2006-01-02"`
	RemovedBy      string `json:"removed_by"`
	RemovedDate    string `json:"removed_date" validate:"omitempty,datetime=2006-01-02"`
}

func (d *CreateDTO) Normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.MiddleName = strings.TrimSpace(d.MiddleName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Sex = strings.ToLower(strings.TrimSpace(d.Sex))
	d.Sequence = strings.ToLower(strings.TrimSpace(d.Sequence))
	d.Participation = strings.ToLower(strings.TrimSpace(d.Participation))
	d.ReceivedBy = strings.TrimSpace(d.ReceivedBy)
	d.RemovedBy = strings.TrimSpace(d.RemovedBy)
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validateMemberDTO(ctx, d)
}

func (d *UpdateDTO) Normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.MiddleName = strings.TrimSpace(d.MiddleName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Sex = strings.ToLower(strings.TrimSpace(d.Sex))
	d.Sequence = strings.ToLower(strings.TrimSpace(d.Sequence))
	d.Participation = strings.ToLower(strings.TrimSpace(d.Participation))
	d.ReceivedBy = strings.TrimSpace(d.ReceivedBy)
	d.RemovedBy = strings.TrimSpace(d.RemovedBy)
}

func (d *UpdateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validateMemberDTO(ctx, d)
}

func validateMemberDTO(ctx context.Context, dto any) (map[string]string, bool) {
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
		return fmt.Sprintf("Members.Fields.%s", field)
	}
	validationErrors := serrors.ProcessValidatorErrors(validatorErrs, getFieldLocaleKey)

	return serrors.LocalizeValidationErrors(validationErrors, l), false
}
