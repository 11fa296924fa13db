package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("course not found")
	ErrClassNotFound    = core.NewNotFoundError("class not found")
	ErrNotEnrolled      = core.NewNotFoundError("student is not enrolled in this class")
	ErrAlreadyEnrolled  = core.NewConflictError("student is already enrolled in this class")
	ErrNotCourseTeacher = core.NewPermissionError("only the teacher of this course can do this")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// DeleteCourse also deletes everything the course owns.
		DeleteCourse(ctx context.Context, id int64) error
		QueryCoursesByTeacher(ctx context.Context, teacherID int64) ([]Course, error)
		QueryCoursesByStudent(ctx context.Context, studentID int64) ([]Course, error)
		CountClassesAndStudents(ctx context.Context, courseID int64) (numClass int, numStudent int, err error)

		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id int64) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id int64) error
		QueryClassesByCourse(ctx context.Context, courseID int64) ([]Class, error)
		QueryClassesByStudent(ctx context.Context, studentID int64) ([]Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID int64) ([]Class, error)

		// CreateSelection returns ErrAlreadyEnrolled on duplicates.
		CreateSelection(ctx context.Context, classID, studentID int64) error
		// DeleteSelection returns ErrNotEnrolled when there is nothing to delete.
		DeleteSelection(ctx context.Context, classID, studentID int64) error
		ListStudentIDs(ctx context.Context, classID int64) ([]int64, error)
		IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, teacherID int64, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id int64) (Course, error)
		// GetOwned returns the course if teacherID teaches it, else ErrNotCourseTeacher.
		GetOwned(ctx context.Context, id, teacherID int64) (Course, error)
		Update(ctx context.Context, crs Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id, teacherID int64) error
		QueryByTeacher(ctx context.Context, teacherID int64) ([]Summary, error)
		QueryByStudent(ctx context.Context, studentID int64) ([]Summary, error)

		CreateClass(ctx context.Context, courseID, teacherID int64, ncl NewClass) (Class, error)
		GetClass(ctx context.Context, id int64) (Class, error)
		// GetOwnedClass returns the class if teacherID teaches its course, else ErrNotCourseTeacher.
		GetOwnedClass(ctx context.Context, id, teacherID int64) (Class, error)
		UpdateClass(ctx context.Context, cls Class, ucl UpdateClass) (Class, error)
		DeleteClass(ctx context.Context, id, teacherID int64) error
		QueryClassesByCourse(ctx context.Context, courseID int64) ([]Class, error)
		QueryClassesByStudent(ctx context.Context, studentID int64) ([]Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID int64) ([]Class, error)

		Enroll(ctx context.Context, classID, studentID int64) error
		Withdraw(ctx context.Context, classID, studentID int64) error
		ListStudentIDs(ctx context.Context, classID int64) ([]int64, error)
		IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, teacherID int64, nc NewCourse) (Course, error) {
	crs := Course{
		TeacherID:              teacherID,
		Name:                   nc.Name,
		Description:            nc.Description,
		StartDate:              nc.StartTime.UTC(),
		EndDate:                nc.EndTime.UTC(),
		ReportPercentage:       defaultReportPercentage,
		PresentationPercentage: defaultPresentationPercentage,
	}
	if nc.Proportions != nil {
		crs.ReportPercentage = nc.Proportions.Report
		crs.PresentationPercentage = nc.Proportions.Presentation
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetOwned(ctx context.Context, id, teacherID int64) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.TeacherID != teacherID {
		return Course{}, ErrNotCourseTeacher
	}
	return crs, nil
}

func (svc *Service) Update(ctx context.Context, crs Course, uc UpdateCourse) (Course, error) {
	crs.Name = uc.Name
	crs.Description = uc.Description
	crs.StartDate = uc.StartTime.UTC()
	crs.EndDate = uc.EndTime.UTC()
	if uc.Proportions != nil {
		crs.ReportPercentage = uc.Proportions.Report
		crs.PresentationPercentage = uc.Proportions.Presentation
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, id, teacherID int64) error {
	if _, err := svc.GetOwned(ctx, id, teacherID); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) QueryByTeacher(ctx context.Context, teacherID int64) ([]Summary, error) {
	courses, err := svc.repo.QueryCoursesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses by teacher")
	}
	return svc.summarize(ctx, courses)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID int64) ([]Summary, error) {
	courses, err := svc.repo.QueryCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses by student")
	}
	return svc.summarize(ctx, courses)
}

func (svc *Service) summarize(ctx context.Context, courses []Course) ([]Summary, error) {
	sums := make([]Summary, 0, len(courses))
	for _, crs := range courses {
		numClass, numStudent, err := svc.repo.CountClassesAndStudents(ctx, crs.ID)
		if err != nil {
			return nil, errors.Wrap(err, "counting classes and students")
		}
		sums = append(sums, Summary{Course: crs, NumClass: numClass, NumStudent: numStudent})
	}
	return sums, nil
}

func (svc *Service) CreateClass(ctx context.Context, courseID, teacherID int64, ncl NewClass) (Class, error) {
	if _, err := svc.GetOwned(ctx, courseID, teacherID); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		CourseID: courseID,
		Name:     ncl.Name,
		Site:     ncl.Site,
		Time:     ncl.Time,
	})
}

func (svc *Service) GetClass(ctx context.Context, id int64) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) GetOwnedClass(ctx context.Context, id, teacherID int64) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if _, err := svc.GetOwned(ctx, cls.CourseID, teacherID); err != nil {
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) UpdateClass(ctx context.Context, cls Class, ucl UpdateClass) (Class, error) {
	cls.Name = ucl.Name
	cls.Site = ucl.Site
	cls.Time = ucl.Time
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) DeleteClass(ctx context.Context, id, teacherID int64) error {
	if _, err := svc.GetOwnedClass(ctx, id, teacherID); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *Service) QueryClassesByCourse(ctx context.Context, courseID int64) ([]Class, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassesByCourse(ctx, courseID)
}

func (svc *Service) QueryClassesByStudent(ctx context.Context, studentID int64) ([]Class, error) {
	return svc.repo.QueryClassesByStudent(ctx, studentID)
}

func (svc *Service) QueryClassesByTeacher(ctx context.Context, teacherID int64) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacherID)
}

func (svc *Service) Enroll(ctx context.Context, classID, studentID int64) error {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return err
	}
	return svc.repo.CreateSelection(ctx, classID, studentID)
}

func (svc *Service) Withdraw(ctx context.Context, classID, studentID int64) error {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return err
	}
	return svc.repo.DeleteSelection(ctx, classID, studentID)
}

func (svc *Service) ListStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.ListStudentIDs(ctx, classID)
}

func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	return svc.repo.IsEnrolled(ctx, classID, studentID)
}
