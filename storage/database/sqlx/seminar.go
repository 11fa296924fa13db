package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/seminar"
)

const (
	seminarColumns = `id, course_id, name, description, is_fixed, start_time, end_time`
	topicColumns   = `id, seminar_id, serial, name, description, group_number_limit, group_student_limit`
)

type seminarRow struct {
	ID          int64     `db:"id"`
	CourseID    int64     `db:"course_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsFixed     bool      `db:"is_fixed"`
	StartTime   time.Time `db:"start_time"`
	EndTime     time.Time `db:"end_time"`
}

type topicRow struct {
	ID                int64  `db:"id"`
	SeminarID         int64  `db:"seminar_id"`
	Serial            string `db:"serial"`
	Name              string `db:"name"`
	Description       string `db:"description"`
	GroupNumberLimit  int    `db:"group_number_limit"`
	GroupStudentLimit int    `db:"group_student_limit"`
}

type seminarRepository struct {
	db core.DB
}

var _ seminar.Repository = (*seminarRepository)(nil) // interface compliance check

func NewSeminarRepository(db core.DB) *seminarRepository {
	return &seminarRepository{db: db}
}

func (repo *seminarRepository) CreateSeminar(ctx context.Context, sem seminar.Seminar) (seminar.Seminar, error) {
	q := `INSERT INTO seminar (course_id, name, description, is_fixed, start_time, end_time)
		VALUES (:course_id, :name, :description, :is_fixed, :start_time, :end_time)
		RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, seminarRow(sem))
	if err != nil {
		return seminar.Seminar{}, errors.Wrap(err, "inserting seminar")
	}
	sem.ID = id
	return sem, nil
}

func (repo *seminarRepository) GetSeminar(ctx context.Context, id int64) (seminar.Seminar, error) {
	var row seminarRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+seminarColumns+` FROM seminar WHERE id = $1`, id); err != nil {
		return seminar.Seminar{}, trapNoRowsErr(err, seminar.ErrNotFound, "getting seminar")
	}
	return seminar.Seminar(row), nil
}

func (repo *seminarRepository) UpdateSeminar(ctx context.Context, sem seminar.Seminar) (seminar.Seminar, error) {
	q := `UPDATE seminar SET name = :name, description = :description, is_fixed = :is_fixed,
		start_time = :start_time, end_time = :end_time
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, seminarRow(sem))
	if err != nil {
		return seminar.Seminar{}, errors.Wrap(err, "updating seminar")
	}
	if err := checkAffected(res, seminar.ErrNotFound, "updating seminar"); err != nil {
		return seminar.Seminar{}, err
	}
	return sem, nil
}

func (repo *seminarRepository) DeleteSeminar(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM seminar WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting seminar")
	}
	return checkAffected(res, seminar.ErrNotFound, "deleting seminar")
}

func (repo *seminarRepository) QuerySeminarsByCourse(ctx context.Context, courseID int64) ([]seminar.Seminar, error) {
	var rows []seminarRow
	q := `SELECT ` + seminarColumns + ` FROM seminar WHERE course_id = $1 ORDER BY start_time, id`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying seminars")
	}
	seminars := make([]seminar.Seminar, 0, len(rows))
	for _, row := range rows {
		seminars = append(seminars, seminar.Seminar(row))
	}
	return seminars, nil
}

func (repo *seminarRepository) CreateTopic(ctx context.Context, tpc seminar.Topic) (seminar.Topic, error) {
	q := `INSERT INTO topic (seminar_id, serial, name, description, group_number_limit, group_student_limit)
		VALUES (:seminar_id, :serial, :name, :description, :group_number_limit, :group_student_limit)
		RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, topicRow(tpc))
	if err != nil {
		return seminar.Topic{}, errors.Wrap(err, "inserting topic")
	}
	tpc.ID = id
	return tpc, nil
}

func (repo *seminarRepository) GetTopic(ctx context.Context, id int64) (seminar.Topic, error) {
	var row topicRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+topicColumns+` FROM topic WHERE id = $1`, id); err != nil {
		return seminar.Topic{}, trapNoRowsErr(err, seminar.ErrTopicNotFound, "getting topic")
	}
	return seminar.Topic(row), nil
}

func (repo *seminarRepository) UpdateTopic(ctx context.Context, tpc seminar.Topic) (seminar.Topic, error) {
	q := `UPDATE topic SET serial = :serial, name = :name, description = :description,
		group_number_limit = :group_number_limit, group_student_limit = :group_student_limit
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, topicRow(tpc))
	if err != nil {
		return seminar.Topic{}, errors.Wrap(err, "updating topic")
	}
	if err := checkAffected(res, seminar.ErrTopicNotFound, "updating topic"); err != nil {
		return seminar.Topic{}, err
	}
	return tpc, nil
}

func (repo *seminarRepository) DeleteTopic(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM topic WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return checkAffected(res, seminar.ErrTopicNotFound, "deleting topic")
}

func (repo *seminarRepository) QueryTopicsBySeminar(ctx context.Context, seminarID int64) ([]seminar.Topic, error) {
	var rows []topicRow
	q := `SELECT ` + topicColumns + ` FROM topic WHERE seminar_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, seminarID); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]seminar.Topic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, seminar.Topic(row))
	}
	return topics, nil
}
