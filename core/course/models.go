package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xmu-se/crms/core"
)

const (
	defaultReportPercentage       = 50
	defaultPresentationPercentage = 50
)

type Course struct {
	ID                     int64
	TeacherID              int64
	Name                   string
	Description            string
	StartDate              time.Time
	EndDate                time.Time
	ReportPercentage       int
	PresentationPercentage int
}

// Summary is a Course with its class and student counts.
type Summary struct {
	Course
	NumClass   int
	NumStudent int
}

// Proportions weighs the report and presentation grades into the final grade; they sum up to 100.
type Proportions struct {
	Report       int `json:"report" validate:"min=0,max=100"`
	Presentation int `json:"presentation" validate:"min=0,max=100"`
}

var errBadProportions = core.NewValidationError(nil, core.FieldError{
	Field: "proportions",
	Error: "report and presentation proportions must sum up to 100",
})

func (p *Proportions) validate() error {
	if p.Report+p.Presentation != 100 {
		return errBadProportions
	}
	return nil
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string       `json:"name" validate:"required,notblank,max=128"`
	Description string       `json:"description" validate:"max=2048"`
	StartTime   time.Time    `json:"startTime" validate:"required"`
	EndTime     time.Time    `json:"endTime" validate:"required,gtfield=StartTime"`
	Proportions *Proportions `json:"proportions"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	if nc.Proportions == nil {
		nc.Proportions = &Proportions{Report: defaultReportPercentage, Presentation: defaultPresentationPercentage}
	}
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return nc.Proportions.validate()
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields keep their current value.
type UpdateCourse struct {
	Name        string       `json:"name" validate:"max=128"`
	Description string       `json:"description" validate:"max=2048"`
	StartTime   time.Time    `json:"startTime"`
	EndTime     time.Time    `json:"endTime"`
	Proportions *Proportions `json:"proportions"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	if uc.StartTime.IsZero() {
		uc.StartTime = orig.StartDate
	}
	if uc.EndTime.IsZero() {
		uc.EndTime = orig.EndDate
	}
	if uc.Proportions == nil {
		uc.Proportions = &Proportions{Report: orig.ReportPercentage, Presentation: orig.PresentationPercentage}
	}
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if !uc.EndTime.After(uc.StartTime) {
		return core.NewTimeRangeError("endTime", "startTime")
	}
	return uc.Proportions.validate()
}

type Class struct {
	ID       int64
	CourseID int64
	Name     string
	Site     string
	Time     string
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name   string    `json:"name" validate:"required,notblank,max=128"`
	Site   string    `json:"site" validate:"max=128"`
	Time   string    `json:"time" validate:"max=128"`
	Course *core.Ref `json:"course"`
}

func (ncl *NewClass) Validate(validate *validator.Validate) error {
	ncl.Name = core.CleanString(ncl.Name)
	ncl.Site = core.CleanString(ncl.Site)
	ncl.Time = core.CleanString(ncl.Time)
	return validate.Struct(ncl)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Empty fields keep their current value.
type UpdateClass struct {
	Name string `json:"name" validate:"max=128"`
	Site string `json:"site" validate:"max=128"`
	Time string `json:"time" validate:"max=128"`
}

func (ucl *UpdateClass) Validate(orig Class, validate *validator.Validate) error {
	keep := func(s, orig string) string {
		if s = core.CleanString(s); s != "" {
			return s
		}
		return orig
	}
	ucl.Name = keep(ucl.Name, orig.Name)
	ucl.Site = keep(ucl.Site, orig.Site)
	ucl.Time = keep(ucl.Time, orig.Time)
	return validate.Struct(ucl)
}
