package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
)

const (
	courseColumns = `c.id, c.teacher_id, c.name, c.description, c.start_date, c.end_date, c.report_percentage, c.presentation_percentage`
	classColumns  = `cl.id, cl.course_id, cl.name, cl.site, cl.class_time`
)

type courseRow struct {
	ID                     int64     `db:"id"`
	TeacherID              int64     `db:"teacher_id"`
	Name                   string    `db:"name"`
	Description            string    `db:"description"`
	StartDate              time.Time `db:"start_date"`
	EndDate                time.Time `db:"end_date"`
	ReportPercentage       int       `db:"report_percentage"`
	PresentationPercentage int       `db:"presentation_percentage"`
}

type classRow struct {
	ID       int64  `db:"id"`
	CourseID int64  `db:"course_id"`
	Name     string `db:"name"`
	Site     string `db:"site"`
	Time     string `db:"class_time"`
}

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO course (teacher_id, name, description, start_date, end_date, report_percentage, presentation_percentage)
		VALUES (:teacher_id, :name, :description, :start_date, :end_date, :report_percentage, :presentation_percentage)
		RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, courseRow(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	crs.ID = id
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course c WHERE c.id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return course.Course(row), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE course SET name = :name, description = :description, start_date = :start_date, end_date = :end_date,
		report_percentage = :report_percentage, presentation_percentage = :presentation_percentage
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, courseRow(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err := checkAffected(res, course.ErrNotFound, "updating course"); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

// DeleteCourse relies on ON DELETE CASCADE for classes, seminars and groups.
func (repo *courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound, "deleting course")
}

func (repo *courseRepository) selectCourses(ctx context.Context, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.Course(row))
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int64) ([]course.Course, error) {
	courses, err := repo.selectCourses(ctx, `SELECT `+courseColumns+` FROM course c WHERE c.teacher_id = $1 ORDER BY c.id`, teacherID)
	return courses, errors.Wrap(err, "querying courses by teacher")
}

func (repo *courseRepository) QueryCoursesByStudent(ctx context.Context, studentID int64) ([]course.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM course c WHERE c.id IN (
		SELECT cl.course_id FROM class_info cl JOIN course_selection cs ON cs.class_id = cl.id WHERE cs.student_id = $1
	) ORDER BY c.id`
	courses, err := repo.selectCourses(ctx, q, studentID)
	return courses, errors.Wrap(err, "querying courses by student")
}

func (repo *courseRepository) CountClassesAndStudents(ctx context.Context, courseID int64) (int, int, error) {
	var counts struct {
		NumClass   int `db:"num_class"`
		NumStudent int `db:"num_student"`
	}
	q := `SELECT
		(SELECT COUNT(*) FROM class_info WHERE course_id = $1) AS num_class,
		(SELECT COUNT(DISTINCT cs.student_id) FROM course_selection cs
			JOIN class_info cl ON cl.id = cs.class_id WHERE cl.course_id = $1) AS num_student`
	if err := repo.db.GetContext(ctx, &counts, q, courseID); err != nil {
		return 0, 0, errors.Wrap(err, "counting classes and students")
	}
	return counts.NumClass, counts.NumStudent, nil
}

func (repo *courseRepository) CreateClass(ctx context.Context, cls course.Class) (course.Class, error) {
	q := `INSERT INTO class_info (course_id, name, site, class_time) VALUES (:course_id, :name, :site, :class_time) RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, classRow(cls))
	if err != nil {
		return course.Class{}, errors.Wrap(err, "inserting class")
	}
	cls.ID = id
	return cls, nil
}

func (repo *courseRepository) GetClass(ctx context.Context, id int64) (course.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+classColumns+` FROM class_info cl WHERE cl.id = $1`, id); err != nil {
		return course.Class{}, trapNoRowsErr(err, course.ErrClassNotFound, "getting class")
	}
	return course.Class(row), nil
}

func (repo *courseRepository) UpdateClass(ctx context.Context, cls course.Class) (course.Class, error) {
	q := `UPDATE class_info SET name = :name, site = :site, class_time = :class_time WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, classRow(cls))
	if err != nil {
		return course.Class{}, errors.Wrap(err, "updating class")
	}
	if err := checkAffected(res, course.ErrClassNotFound, "updating class"); err != nil {
		return course.Class{}, err
	}
	return cls, nil
}

func (repo *courseRepository) DeleteClass(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class_info WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return checkAffected(res, course.ErrClassNotFound, "deleting class")
}

func (repo *courseRepository) selectClasses(ctx context.Context, q string, args ...interface{}) ([]course.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	classes := make([]course.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, course.Class(row))
	}
	return classes, nil
}

func (repo *courseRepository) QueryClassesByCourse(ctx context.Context, courseID int64) ([]course.Class, error) {
	classes, err := repo.selectClasses(ctx, `SELECT `+classColumns+` FROM class_info cl WHERE cl.course_id = $1 ORDER BY cl.id`, courseID)
	return classes, errors.Wrap(err, "querying classes by course")
}

func (repo *courseRepository) QueryClassesByStudent(ctx context.Context, studentID int64) ([]course.Class, error) {
	q := `SELECT ` + classColumns + ` FROM class_info cl
		JOIN course_selection cs ON cs.class_id = cl.id
		WHERE cs.student_id = $1 ORDER BY cl.id`
	classes, err := repo.selectClasses(ctx, q, studentID)
	return classes, errors.Wrap(err, "querying classes by student")
}

func (repo *courseRepository) QueryClassesByTeacher(ctx context.Context, teacherID int64) ([]course.Class, error) {
	q := `SELECT ` + classColumns + ` FROM class_info cl
		JOIN course c ON c.id = cl.course_id
		WHERE c.teacher_id = $1 ORDER BY cl.id`
	classes, err := repo.selectClasses(ctx, q, teacherID)
	return classes, errors.Wrap(err, "querying classes by teacher")
}

func (repo *courseRepository) CreateSelection(ctx context.Context, classID, studentID int64) error {
	_, err := repo.db.ExecContext(ctx, `INSERT INTO course_selection (class_id, student_id) VALUES ($1, $2)`, classID, studentID)
	if isUniqueViolation(err) {
		return course.ErrAlreadyEnrolled
	}
	return errors.Wrap(err, "inserting course selection")
}

func (repo *courseRepository) DeleteSelection(ctx context.Context, classID, studentID int64) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM course_selection WHERE class_id = $1 AND student_id = $2`, classID, studentID)
		if err != nil {
			return errors.Wrap(err, "deleting course selection")
		}
		if err := checkAffected(res, course.ErrNotEnrolled, "deleting course selection"); err != nil {
			return err
		}

		// the student leaves its fixed group of the class too
		q := `DELETE FROM fix_group_member WHERE class_id = $1 AND student_id = $2`
		if _, err := tx.ExecContext(ctx, q, classID, studentID); err != nil {
			return errors.Wrap(err, "deleting fix group member")
		}
		q = `UPDATE fix_group SET leader_id = NULL WHERE class_id = $1 AND leader_id = $2`
		if _, err := tx.ExecContext(ctx, q, classID, studentID); err != nil {
			return errors.Wrap(err, "unsetting fix group leader")
		}
		q = `DELETE FROM fix_group g WHERE g.class_id = $1
			AND NOT EXISTS (SELECT 1 FROM fix_group_member m WHERE m.fix_group_id = g.id)`
		if _, err := tx.ExecContext(ctx, q, classID); err != nil {
			return errors.Wrap(err, "deleting empty fix groups")
		}
		return nil
	})
}

func (repo *courseRepository) ListStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	ids := make([]int64, 0)
	q := `SELECT student_id FROM course_selection WHERE class_id = $1 ORDER BY student_id`
	if err := repo.db.SelectContext(ctx, &ids, q, classID); err != nil {
		return nil, errors.Wrap(err, "listing class students")
	}
	return ids, nil
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	var ok bool
	q := `SELECT EXISTS (SELECT 1 FROM course_selection WHERE class_id = $1 AND student_id = $2)`
	if err := repo.db.GetContext(ctx, &ok, q, classID, studentID); err != nil {
		return false, errors.Wrap(err, "checking enrolment")
	}
	return ok, nil
}
