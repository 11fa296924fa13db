package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
)

const seminarGroupColumns = `g.id, g.seminar_id, g.class_id, g.leader_id, g.report, g.report_grade, g.presentation_grade, g.final_grade`

type seminarGroupRow struct {
	ID                int64        `db:"id"`
	SeminarID         int64        `db:"seminar_id"`
	ClassID           int64        `db:"class_id"`
	LeaderID          null.Int64   `db:"leader_id"`
	Report            string       `db:"report"`
	ReportGrade       null.Float64 `db:"report_grade"`
	PresentationGrade null.Float64 `db:"presentation_grade"`
	FinalGrade        null.Float64 `db:"final_grade"`
}

func toSeminarGroupRow(grp seminargroup.SeminarGroup) seminarGroupRow {
	return seminarGroupRow{
		ID:                grp.ID,
		SeminarID:         grp.SeminarID,
		ClassID:           grp.ClassID,
		LeaderID:          null.NewInt64(grp.LeaderID, grp.LeaderID != 0),
		Report:            grp.Report,
		ReportGrade:       null.Float64FromPtr(grp.ReportGrade),
		PresentationGrade: null.Float64FromPtr(grp.PresentationGrade),
		FinalGrade:        null.Float64FromPtr(grp.FinalGrade),
	}
}

func (row seminarGroupRow) toSeminarGroup(memberIDs []int64) seminargroup.SeminarGroup {
	return seminargroup.SeminarGroup{
		ID:                row.ID,
		SeminarID:         row.SeminarID,
		ClassID:           row.ClassID,
		LeaderID:          row.LeaderID.Int64,
		Report:            row.Report,
		ReportGrade:       row.ReportGrade.Ptr(),
		PresentationGrade: row.PresentationGrade.Ptr(),
		FinalGrade:        row.FinalGrade.Ptr(),
		MemberIDs:         memberIDs,
	}
}

type groupTopicRow struct {
	ID                int64        `db:"id"`
	GroupID           int64        `db:"seminar_group_id"`
	TopicID           int64        `db:"topic_id"`
	PresentationGrade null.Float64 `db:"presentation_grade"`
}

func (row groupTopicRow) toGroupTopic() seminargroup.GroupTopic {
	return seminargroup.GroupTopic{
		ID:                row.ID,
		GroupID:           row.GroupID,
		TopicID:           row.TopicID,
		PresentationGrade: row.PresentationGrade.Ptr(),
	}
}

type seminarGroupRepository struct {
	db core.DB
}

var _ seminargroup.Repository = (*seminarGroupRepository)(nil) // interface compliance check

func NewSeminarGroupRepository(db core.DB) *seminarGroupRepository {
	return &seminarGroupRepository{db: db}
}

func (repo *seminarGroupRepository) withMembers(ctx context.Context, rows []seminarGroupRow) ([]seminargroup.SeminarGroup, error) {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	members, err := loadMembers(ctx, repo.db, "seminar_group_member", "seminar_group_id", ids)
	if err != nil {
		return nil, err
	}
	groups := make([]seminargroup.SeminarGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toSeminarGroup(members[row.ID]))
	}
	return groups, nil
}

func (repo *seminarGroupRepository) CreateSeminarGroup(ctx context.Context, grp seminargroup.SeminarGroup) (seminargroup.SeminarGroup, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO seminar_group (seminar_id, class_id, leader_id, report, report_grade, presentation_grade, final_grade)
			VALUES (:seminar_id, :class_id, :leader_id, :report, :report_grade, :presentation_grade, :final_grade)
			RETURNING id`
		id, err := insertReturningID(ctx, tx, q, toSeminarGroupRow(grp))
		if err != nil {
			return errors.Wrap(err, "inserting seminar group")
		}
		grp.ID = id
		for _, studentID := range grp.MemberIDs {
			q := `INSERT INTO seminar_group_member (seminar_group_id, student_id) VALUES ($1, $2)`
			if _, err := tx.ExecContext(ctx, q, id, studentID); err != nil {
				return errors.Wrap(err, "inserting seminar group member")
			}
		}
		return nil
	})
	if err != nil {
		return seminargroup.SeminarGroup{}, err
	}
	return grp, nil
}

func (repo *seminarGroupRepository) GetSeminarGroup(ctx context.Context, id int64) (seminargroup.SeminarGroup, error) {
	var row seminarGroupRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+seminarGroupColumns+` FROM seminar_group g WHERE g.id = $1`, id); err != nil {
		return seminargroup.SeminarGroup{}, trapNoRowsErr(err, seminargroup.ErrNotFound, "getting seminar group")
	}
	groups, err := repo.withMembers(ctx, []seminarGroupRow{row})
	if err != nil {
		return seminargroup.SeminarGroup{}, err
	}
	return groups[0], nil
}

func (repo *seminarGroupRepository) QuerySeminarGroups(ctx context.Context, filter seminargroup.QueryFilter) ([]seminargroup.SeminarGroup, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.SeminarIDs != nil {
		conds = append(conds, "g.seminar_id = ANY("+arg(pq.Array(filter.SeminarIDs))+")")
	}
	if filter.ClassID != 0 {
		conds = append(conds, "g.class_id = "+arg(filter.ClassID))
	}
	if filter.StudentID != 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM seminar_group_member m WHERE m.seminar_group_id = g.id AND m.student_id = "+arg(filter.StudentID)+")")
	}
	if filter.TopicID != 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM seminar_group_topic t WHERE t.seminar_group_id = g.id AND t.topic_id = "+arg(filter.TopicID)+")")
	}

	var rows []seminarGroupRow
	q := `SELECT ` + seminarGroupColumns + ` FROM seminar_group g` + where(conds) + ` ORDER BY g.id`
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying seminar groups")
	}
	return repo.withMembers(ctx, rows)
}

func (repo *seminarGroupRepository) UpdateSeminarGroup(ctx context.Context, grp seminargroup.SeminarGroup) (seminargroup.SeminarGroup, error) {
	q := `UPDATE seminar_group SET leader_id = :leader_id, report = :report, report_grade = :report_grade,
		presentation_grade = :presentation_grade, final_grade = :final_grade
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toSeminarGroupRow(grp))
	if err != nil {
		return seminargroup.SeminarGroup{}, errors.Wrap(err, "updating seminar group")
	}
	if err := checkAffected(res, seminargroup.ErrNotFound, "updating seminar group"); err != nil {
		return seminargroup.SeminarGroup{}, err
	}
	return repo.GetSeminarGroup(ctx, grp.ID)
}

func (repo *seminarGroupRepository) CreateGroupTopic(ctx context.Context, gt seminargroup.GroupTopic, groupLimit int) (seminargroup.GroupTopic, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// the topic row lock serializes concurrent selections of the same topic
		var topicID int64
		if err := tx.GetContext(ctx, &topicID, `SELECT id FROM topic WHERE id = $1 FOR UPDATE`, gt.TopicID); err != nil {
			return trapNoRowsErr(err, seminar.ErrTopicNotFound, "locking topic")
		}
		if groupLimit > 0 {
			var count int
			q := `SELECT COUNT(*) FROM seminar_group_topic t
				JOIN seminar_group g ON g.id = t.seminar_group_id
				WHERE t.topic_id = $1 AND g.class_id = (SELECT class_id FROM seminar_group WHERE id = $2)`
			if err := tx.GetContext(ctx, &count, q, gt.TopicID, gt.GroupID); err != nil {
				return errors.Wrap(err, "counting topic groups")
			}
			if count >= groupLimit {
				return seminargroup.ErrTopicFull
			}
		}

		row := groupTopicRow{GroupID: gt.GroupID, TopicID: gt.TopicID, PresentationGrade: null.Float64FromPtr(gt.PresentationGrade)}
		q := `INSERT INTO seminar_group_topic (seminar_group_id, topic_id, presentation_grade)
			VALUES (:seminar_group_id, :topic_id, :presentation_grade)
			RETURNING id`
		id, err := insertReturningID(ctx, tx, q, row)
		if err != nil {
			if isUniqueViolation(err) {
				return seminargroup.ErrTopicSelected
			}
			return errors.Wrap(err, "inserting group topic")
		}
		gt.ID = id
		return nil
	})
	if err != nil {
		return seminargroup.GroupTopic{}, err
	}
	return gt, nil
}

func (repo *seminarGroupRepository) GetGroupTopic(ctx context.Context, groupID, topicID int64) (seminargroup.GroupTopic, error) {
	var row groupTopicRow
	q := `SELECT id, seminar_group_id, topic_id, presentation_grade FROM seminar_group_topic
		WHERE seminar_group_id = $1 AND topic_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, groupID, topicID); err != nil {
		return seminargroup.GroupTopic{}, trapNoRowsErr(err, seminargroup.ErrTopicNotSelected, "getting group topic")
	}
	return row.toGroupTopic(), nil
}

func (repo *seminarGroupRepository) QueryGroupTopics(ctx context.Context, groupID int64) ([]seminargroup.GroupTopic, error) {
	var rows []groupTopicRow
	q := `SELECT id, seminar_group_id, topic_id, presentation_grade FROM seminar_group_topic
		WHERE seminar_group_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, errors.Wrap(err, "querying group topics")
	}
	gts := make([]seminargroup.GroupTopic, 0, len(rows))
	for _, row := range rows {
		gts = append(gts, row.toGroupTopic())
	}
	return gts, nil
}

func (repo *seminarGroupRepository) UpdateGroupTopic(ctx context.Context, gt seminargroup.GroupTopic) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE seminar_group_topic SET presentation_grade = $2 WHERE id = $1`,
		gt.ID, null.Float64FromPtr(gt.PresentationGrade))
	if err != nil {
		return errors.Wrap(err, "updating group topic")
	}
	return checkAffected(res, seminargroup.ErrTopicNotSelected, "updating group topic")
}

func (repo *seminarGroupRepository) DeleteGroupTopic(ctx context.Context, groupID, topicID int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM seminar_group_topic WHERE seminar_group_id = $1 AND topic_id = $2`,
		groupID, topicID)
	if err != nil {
		return errors.Wrap(err, "deleting group topic")
	}
	return checkAffected(res, seminargroup.ErrTopicNotSelected, "deleting group topic")
}

func (repo *seminarGroupRepository) CountTopicGroups(ctx context.Context, topicID, classID int64) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM seminar_group_topic t
		JOIN seminar_group g ON g.id = t.seminar_group_id
		WHERE t.topic_id = $1 AND ($2::bigint = 0 OR g.class_id = $2::bigint)`
	if err := repo.db.GetContext(ctx, &count, q, topicID, classID); err != nil {
		return 0, errors.Wrap(err, "counting topic groups")
	}
	return count, nil
}

func (repo *seminarGroupRepository) SaveScore(ctx context.Context, score seminargroup.Score) error {
	q := `INSERT INTO student_score_group (seminar_group_topic_id, student_id, grade) VALUES ($1, $2, $3)
		ON CONFLICT (seminar_group_topic_id, student_id) DO UPDATE SET grade = EXCLUDED.grade`
	_, err := repo.db.ExecContext(ctx, q, score.GroupTopicID, score.StudentID, score.Grade)
	return errors.Wrap(err, "saving score")
}

func (repo *seminarGroupRepository) QueryScores(ctx context.Context, groupTopicID int64) ([]seminargroup.Score, error) {
	var rows []struct {
		GroupTopicID int64 `db:"seminar_group_topic_id"`
		StudentID    int64 `db:"student_id"`
		Grade        int   `db:"grade"`
	}
	q := `SELECT seminar_group_topic_id, student_id, grade FROM student_score_group
		WHERE seminar_group_topic_id = $1 ORDER BY student_id`
	if err := repo.db.SelectContext(ctx, &rows, q, groupTopicID); err != nil {
		return nil, errors.Wrap(err, "querying scores")
	}
	scores := make([]seminargroup.Score, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, seminargroup.Score(row))
	}
	return scores, nil
}
