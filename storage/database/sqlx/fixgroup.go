package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/fixgroup"
)

const fixGroupMemberClassKey = "fix_group_member_class_student_key"

type fixGroupRow struct {
	ID       int64      `db:"id"`
	ClassID  int64      `db:"class_id"`
	LeaderID null.Int64 `db:"leader_id"`
}

type memberRow struct {
	GroupID   int64 `db:"group_id"`
	StudentID int64 `db:"student_id"`
}

// loadMembers maps each of groupIDs to its member ids, read from table whose group column is groupCol.
func loadMembers(ctx context.Context, db core.DBExecutor, table, groupCol string, groupIDs []int64) (map[int64][]int64, error) {
	members := make(map[int64][]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return members, nil
	}
	var rows []memberRow
	q := fmt.Sprintf(`SELECT %[2]s AS group_id, student_id FROM %[1]s WHERE %[2]s = ANY($1) ORDER BY student_id`, table, groupCol)
	if err := db.SelectContext(ctx, &rows, q, pq.Array(groupIDs)); err != nil {
		return nil, errors.Wrap(err, "loading group members")
	}
	for _, row := range rows {
		members[row.GroupID] = append(members[row.GroupID], row.StudentID)
	}
	return members, nil
}

// trapGroupedErr maps a second membership in the same class to fixgroup.ErrAlreadyGrouped.
func trapGroupedErr(err error) error {
	if name, ok := uniqueConstraint(err); ok && name == fixGroupMemberClassKey {
		return fixgroup.ErrAlreadyGrouped
	}
	return errors.Wrap(err, "inserting fix group member")
}

type fixGroupRepository struct {
	db core.DB
}

var _ fixgroup.Repository = (*fixGroupRepository)(nil) // interface compliance check

func NewFixGroupRepository(db core.DB) *fixGroupRepository {
	return &fixGroupRepository{db: db}
}

func (repo *fixGroupRepository) withMembers(ctx context.Context, rows []fixGroupRow) ([]fixgroup.FixGroup, error) {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	members, err := loadMembers(ctx, repo.db, "fix_group_member", "fix_group_id", ids)
	if err != nil {
		return nil, err
	}
	groups := make([]fixgroup.FixGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, fixgroup.FixGroup{
			ID:        row.ID,
			ClassID:   row.ClassID,
			LeaderID:  row.LeaderID.Int64,
			MemberIDs: members[row.ID],
		})
	}
	return groups, nil
}

func (repo *fixGroupRepository) CreateFixGroup(ctx context.Context, grp fixgroup.FixGroup) (fixgroup.FixGroup, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		row := fixGroupRow{ClassID: grp.ClassID, LeaderID: null.NewInt64(grp.LeaderID, grp.LeaderID != 0)}
		id, err := insertReturningID(ctx, tx, `INSERT INTO fix_group (class_id, leader_id) VALUES (:class_id, :leader_id) RETURNING id`, row)
		if err != nil {
			return errors.Wrap(err, "inserting fix group")
		}
		grp.ID = id
		for _, studentID := range grp.MemberIDs {
			q := `INSERT INTO fix_group_member (fix_group_id, class_id, student_id) VALUES ($1, $2, $3)`
			if _, err := tx.ExecContext(ctx, q, id, grp.ClassID, studentID); err != nil {
				return trapGroupedErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return fixgroup.FixGroup{}, err
	}
	return grp, nil
}

func (repo *fixGroupRepository) GetFixGroupByStudent(ctx context.Context, classID, studentID int64) (fixgroup.FixGroup, error) {
	var rows []fixGroupRow
	q := `SELECT g.id, g.class_id, g.leader_id FROM fix_group g
		JOIN fix_group_member m ON m.fix_group_id = g.id
		WHERE g.class_id = $1 AND m.student_id = $2
		ORDER BY g.id LIMIT 1`
	if err := repo.db.SelectContext(ctx, &rows, q, classID, studentID); err != nil {
		return fixgroup.FixGroup{}, errors.Wrap(err, "getting fix group")
	}
	if len(rows) == 0 {
		return fixgroup.FixGroup{}, fixgroup.ErrNotFound
	}
	groups, err := repo.withMembers(ctx, rows)
	if err != nil {
		return fixgroup.FixGroup{}, err
	}
	return groups[0], nil
}

func (repo *fixGroupRepository) QueryFixGroupsByClass(ctx context.Context, classID int64) ([]fixgroup.FixGroup, error) {
	var rows []fixGroupRow
	q := `SELECT id, class_id, leader_id FROM fix_group WHERE class_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying fix groups")
	}
	return repo.withMembers(ctx, rows)
}

func (repo *fixGroupRepository) AddFixGroupMember(ctx context.Context, groupID, studentID int64) error {
	q := `INSERT INTO fix_group_member (fix_group_id, class_id, student_id) SELECT id, class_id, $2 FROM fix_group WHERE id = $1
		ON CONFLICT (fix_group_id, student_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, q, groupID, studentID)
	if err != nil {
		return trapGroupedErr(err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return errors.Wrap(err, "inserting fix group member")
	}
	// nothing inserted: either the group is missing or the student already belongs to it
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM fix_group WHERE id = $1)`, groupID); err != nil {
		return errors.Wrap(err, "checking fix group")
	}
	if !exists {
		return fixgroup.ErrNotFound
	}
	return nil
}

func (repo *fixGroupRepository) RemoveFixGroupMember(ctx context.Context, groupID, studentID int64) error {
	q := `DELETE FROM fix_group_member WHERE fix_group_id = $1 AND student_id = $2`
	res, err := repo.db.ExecContext(ctx, q, groupID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting fix group member")
	}
	return checkAffected(res, fixgroup.ErrNotMember, "deleting fix group member")
}

func (repo *fixGroupRepository) SetFixGroupLeader(ctx context.Context, groupID, leaderID int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE fix_group SET leader_id = $2 WHERE id = $1`,
		groupID, null.NewInt64(leaderID, leaderID != 0))
	if err != nil {
		return errors.Wrap(err, "setting fix group leader")
	}
	return checkAffected(res, fixgroup.ErrNotFound, "setting fix group leader")
}

func (repo *fixGroupRepository) DeleteFixGroup(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM fix_group WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting fix group")
	}
	return checkAffected(res, fixgroup.ErrNotFound, "deleting fix group")
}
