package seminar

import (
	"context"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("seminar not found")
	ErrTopicNotFound = core.NewNotFoundError("topic not found")
)

type (
	Repository interface {
		CreateSeminar(ctx context.Context, sem Seminar) (Seminar, error)
		GetSeminar(ctx context.Context, id int64) (Seminar, error)
		UpdateSeminar(ctx context.Context, sem Seminar) (Seminar, error)
		DeleteSeminar(ctx context.Context, id int64) error
		QuerySeminarsByCourse(ctx context.Context, courseID int64) ([]Seminar, error)

		CreateTopic(ctx context.Context, tpc Topic) (Topic, error)
		GetTopic(ctx context.Context, id int64) (Topic, error)
		UpdateTopic(ctx context.Context, tpc Topic) (Topic, error)
		DeleteTopic(ctx context.Context, id int64) error
		QueryTopicsBySeminar(ctx context.Context, seminarID int64) ([]Topic, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, courseID, teacherID int64, ns NewSeminar) (Seminar, error)
		GetByID(ctx context.Context, id int64) (Seminar, error)
		// GetOwned returns the seminar and its course if teacherID teaches the course.
		GetOwned(ctx context.Context, id, teacherID int64) (Seminar, course.Course, error)
		Update(ctx context.Context, sem Seminar, us UpdateSeminar) (Seminar, error)
		Delete(ctx context.Context, id, teacherID int64) error
		QueryByCourse(ctx context.Context, courseID int64) ([]Seminar, error)

		CreateTopic(ctx context.Context, seminarID, teacherID int64, nt NewTopic) (Topic, error)
		GetTopic(ctx context.Context, id int64) (Topic, error)
		GetOwnedTopic(ctx context.Context, id, teacherID int64) (Topic, error)
		UpdateTopic(ctx context.Context, tpc Topic, ut UpdateTopic) (Topic, error)
		DeleteTopic(ctx context.Context, id, teacherID int64) error
		QueryTopics(ctx context.Context, seminarID int64) ([]Topic, error)
	}

	Service struct {
		repo      Repository
		courseSvc course.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, courseSvc course.ServiceInterface) *Service {
	return &Service{repo: repo, courseSvc: courseSvc}
}

func (svc *Service) Create(ctx context.Context, courseID, teacherID int64, ns NewSeminar) (Seminar, error) {
	if _, err := svc.courseSvc.GetOwned(ctx, courseID, teacherID); err != nil {
		return Seminar{}, err
	}
	return svc.repo.CreateSeminar(ctx, Seminar{
		CourseID:    courseID,
		Name:        ns.Name,
		Description: ns.Description,
		IsFixed:     ns.GroupingMethod != GroupingRandom,
		StartTime:   ns.StartTime.UTC(),
		EndTime:     ns.EndTime.UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Seminar, error) {
	return svc.repo.GetSeminar(ctx, id)
}

func (svc *Service) GetOwned(ctx context.Context, id, teacherID int64) (Seminar, course.Course, error) {
	sem, err := svc.repo.GetSeminar(ctx, id)
	if err != nil {
		return Seminar{}, course.Course{}, err
	}
	crs, err := svc.courseSvc.GetOwned(ctx, sem.CourseID, teacherID)
	if err != nil {
		return Seminar{}, course.Course{}, err
	}
	return sem, crs, nil
}

func (svc *Service) Update(ctx context.Context, sem Seminar, us UpdateSeminar) (Seminar, error) {
	sem.Name = us.Name
	sem.Description = us.Description
	sem.IsFixed = us.GroupingMethod != GroupingRandom
	sem.StartTime = us.StartTime.UTC()
	sem.EndTime = us.EndTime.UTC()
	return svc.repo.UpdateSeminar(ctx, sem)
}

func (svc *Service) Delete(ctx context.Context, id, teacherID int64) error {
	if _, _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	return svc.repo.DeleteSeminar(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID int64) ([]Seminar, error) {
	if _, err := svc.courseSvc.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySeminarsByCourse(ctx, courseID)
}

func (svc *Service) CreateTopic(ctx context.Context, seminarID, teacherID int64, nt NewTopic) (Topic, error) {
	if _, _, err := svc.GetOwned(ctx, seminarID, teacherID); err != nil {
		return Topic{}, err
	}
	return svc.repo.CreateTopic(ctx, Topic{
		SeminarID:         seminarID,
		Serial:            nt.Serial,
		Name:              nt.Name,
		Description:       nt.Description,
		GroupNumberLimit:  nt.GroupLimit,
		GroupStudentLimit: nt.GroupMemberLimit,
	})
}

func (svc *Service) GetTopic(ctx context.Context, id int64) (Topic, error) {
	return svc.repo.GetTopic(ctx, id)
}

func (svc *Service) GetOwnedTopic(ctx context.Context, id, teacherID int64) (Topic, error) {
	tpc, err := svc.repo.GetTopic(ctx, id)
	if err != nil {
		return Topic{}, err
	}
	if _, _, err := svc.GetOwned(ctx, tpc.SeminarID, teacherID); err != nil {
		return Topic{}, err
	}
	return tpc, nil
}

func (svc *Service) UpdateTopic(ctx context.Context, tpc Topic, ut UpdateTopic) (Topic, error) {
	tpc.Serial = ut.Serial
	tpc.Name = ut.Name
	tpc.Description = ut.Description
	if ut.GroupLimit != nil {
		tpc.GroupNumberLimit = *ut.GroupLimit
	}
	if ut.GroupMemberLimit != nil {
		tpc.GroupStudentLimit = *ut.GroupMemberLimit
	}
	return svc.repo.UpdateTopic(ctx, tpc)
}

func (svc *Service) DeleteTopic(ctx context.Context, id, teacherID int64) error {
	if _, err := svc.GetOwnedTopic(ctx, id, teacherID); err != nil {
		return err
	}
	return svc.repo.DeleteTopic(ctx, id)
}

func (svc *Service) QueryTopics(ctx context.Context, seminarID int64) ([]Topic, error) {
	if _, err := svc.repo.GetSeminar(ctx, seminarID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTopicsBySeminar(ctx, seminarID)
}
