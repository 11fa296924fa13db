package seminargroup

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/xmu-se/crms/core"
)

const defaultGroupSize = 5

// SeminarGroup is the group of students of a class presenting topics during a seminar.
// Grades are nil until graded.
type SeminarGroup struct {
	ID                int64
	SeminarID         int64
	ClassID           int64
	LeaderID          int64 // 0: no leader
	Report            string
	ReportGrade       *float64
	PresentationGrade *float64
	FinalGrade        *float64
	MemberIDs         []int64
}

func (g SeminarGroup) IsLeader(studentID int64) bool { return g.LeaderID != 0 && g.LeaderID == studentID }

func (g SeminarGroup) HasMember(studentID int64) bool { return core.Int64sContain(g.MemberIDs, studentID) }

// GroupTopic is a topic chosen by a SeminarGroup.
type GroupTopic struct {
	ID                int64
	GroupID           int64
	TopicID           int64
	PresentationGrade *float64
}

// Score is the presentation grade given by a student to a GroupTopic.
type Score struct {
	GroupTopicID int64
	StudentID    int64
	Grade        int
}

type QueryFilter struct {
	SeminarIDs []int64 // nil: no restriction
	ClassID    int64
	StudentID  int64 // groups having this member
	TopicID    int64 // groups having chosen this topic
}

type UpdateGroup struct {
	Report string `json:"report" validate:"max=512"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Report = core.CleanString(ug.Report)
	return validate.Struct(ug)
}

type ReportGrade struct {
	ReportGrade *float64 `json:"reportGrade" validate:"required,min=0,max=5"`
}

func (rg ReportGrade) Validate(validate *validator.Validate) error { return validate.Struct(rg) }

type TopicScore struct {
	TopicID int64 `json:"topicId" validate:"gt=0"`
	Grade   int   `json:"grade" validate:"min=1,max=5"`
}

type PresentationScores struct {
	Scores []TopicScore `json:"presentationGrade" validate:"required,min=1,dive"`
}

func (ps PresentationScores) Validate(validate *validator.Validate) error { return validate.Struct(ps) }

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	m := round2(sum / float64(len(vals)))
	return &m
}

// finalGrade weighs presentation and report grades with the course percentages; nil until both exist.
func finalGrade(presentation, report *float64, presentationPct, reportPct int) *float64 {
	if presentation == nil || report == nil {
		return nil
	}
	f := round2((*presentation*float64(presentationPct) + *report*float64(reportPct)) / 100)
	return &f
}
