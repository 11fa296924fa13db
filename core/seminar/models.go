package seminar

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xmu-se/crms/core"
)

// Grouping methods
const (
	GroupingFixed  = "fixed"
	GroupingRandom = "random"
)

type Seminar struct {
	ID          int64
	CourseID    int64
	Name        string
	Description string
	IsFixed     bool
	StartTime   time.Time
	EndTime     time.Time
}

func (s Seminar) GroupingMethod() string {
	if s.IsFixed {
		return GroupingFixed
	}
	return GroupingRandom
}

// NewSeminar contains information needed to create a new Seminar.
type NewSeminar struct {
	Name           string    `json:"name" validate:"required,notblank,max=128"`
	Description    string    `json:"description" validate:"max=2048"`
	GroupingMethod string    `json:"groupingMethod" validate:"omitempty,oneof=fixed random"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	EndTime        time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

func (ns *NewSeminar) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	ns.GroupingMethod = core.CleanString(ns.GroupingMethod, true /* lower */)
	if ns.GroupingMethod == "" {
		ns.GroupingMethod = GroupingFixed
	}
	return validate.Struct(ns)
}

// UpdateSeminar defines what information may be provided to modify an existing Seminar.
// Empty fields keep their current value.
type UpdateSeminar struct {
	Name           string    `json:"name" validate:"max=128"`
	Description    string    `json:"description" validate:"max=2048"`
	GroupingMethod string    `json:"groupingMethod" validate:"omitempty,oneof=fixed random"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
}

func (us *UpdateSeminar) Validate(orig Seminar, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if desc := core.CleanString(us.Description); desc != "" {
		us.Description = desc
	} else {
		us.Description = orig.Description
	}
	if gm := core.CleanString(us.GroupingMethod, true /* lower */); gm != "" {
		us.GroupingMethod = gm
	} else {
		us.GroupingMethod = orig.GroupingMethod()
	}
	if us.StartTime.IsZero() {
		us.StartTime = orig.StartTime
	}
	if us.EndTime.IsZero() {
		us.EndTime = orig.EndTime
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	if !us.EndTime.After(us.StartTime) {
		return core.NewTimeRangeError("endTime", "startTime")
	}
	return nil
}

type Topic struct {
	ID                int64
	SeminarID         int64
	Serial            string
	Name              string
	Description       string
	GroupNumberLimit  int // max groups per class choosing this topic; 0: unlimited
	GroupStudentLimit int // max members of a group choosing this topic; 0: unlimited
}

// NewTopic contains information needed to create a new Topic.
type NewTopic struct {
	Serial           string `json:"serial" validate:"max=16"`
	Name             string `json:"name" validate:"required,notblank,max=128"`
	Description      string `json:"description" validate:"max=2048"`
	GroupLimit       int    `json:"groupLimit" validate:"min=0"`
	GroupMemberLimit int    `json:"groupMemberLimit" validate:"min=0"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Serial = core.CleanString(nt.Serial)
	nt.Name = core.CleanString(nt.Name)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTopic defines what information may be provided to modify an existing Topic.
// Empty fields keep their current value.
type UpdateTopic struct {
	Serial           string `json:"serial" validate:"max=16"`
	Name             string `json:"name" validate:"max=128"`
	Description      string `json:"description" validate:"max=2048"`
	GroupLimit       *int   `json:"groupLimit" validate:"omitempty,min=0"`
	GroupMemberLimit *int   `json:"groupMemberLimit" validate:"omitempty,min=0"`
}

func (ut *UpdateTopic) Validate(orig Topic, validate *validator.Validate) error {
	keep := func(s, orig string) string {
		if s = core.CleanString(s); s != "" {
			return s
		}
		return orig
	}
	ut.Serial = keep(ut.Serial, orig.Serial)
	ut.Name = keep(ut.Name, orig.Name)
	ut.Description = keep(ut.Description, orig.Description)
	if ut.GroupLimit == nil {
		ut.GroupLimit = &orig.GroupNumberLimit
	}
	if ut.GroupMemberLimit == nil {
		ut.GroupMemberLimit = &orig.GroupStudentLimit
	}
	return validate.Struct(ut)
}
