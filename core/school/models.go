package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/xmu-se/crms/core"
)

type School struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Province string `json:"province"`
	City     string `json:"city"`
}

// NewSchool contains information needed to register a new School.
type NewSchool struct {
	Name     string `json:"name" validate:"required,notblank,max=128"`
	Province string `json:"province" validate:"required,notblank,max=64"`
	City     string `json:"city" validate:"required,notblank,max=64"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Province = core.CleanString(ns.Province)
	ns.City = core.CleanString(ns.City)
	return validate.Struct(ns)
}

type QueryFilter struct {
	Province string `query:"province"`
	City     string `query:"city"`
}

func (qf *QueryFilter) Clean() {
	qf.Province = core.CleanString(qf.Province)
	qf.City = core.CleanString(qf.City)
}
