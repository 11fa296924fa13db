package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/user"
)

const userColumns = `id, phone, name, number, email, type, gender, title, avatar, school_id, password_hash, created_at, updated_at, last_login`

const emailConstraint = "user_email_key"

var userOrderColumns = map[string]string{
	"id":     "id",
	"name":   "name",
	"number": "number",
	"phone":  "phone",
}

type userRow struct {
	ID           int64       `db:"id"`
	Phone        string      `db:"phone"`
	Name         string      `db:"name"`
	Number       string      `db:"number"`
	Email        null.String `db:"email"`
	Type         string      `db:"type"`
	Gender       string      `db:"gender"`
	Title        string      `db:"title"`
	Avatar       string      `db:"avatar"`
	SchoolID     null.Int64  `db:"school_id"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Phone:        usr.Phone,
		Name:         usr.Name,
		Number:       usr.Number,
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Type:         usr.Type,
		Gender:       usr.Gender,
		Title:        usr.Title,
		Avatar:       usr.Avatar,
		SchoolID:     null.NewInt64(usr.SchoolID, usr.SchoolID != 0),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Phone:        row.Phone,
		Name:         row.Name,
		Number:       row.Number,
		Email:        row.Email.String,
		Type:         row.Type,
		Gender:       row.Gender,
		Title:        row.Title,
		Avatar:       row.Avatar,
		SchoolID:     row.SchoolID.Int64,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, phone, email string, excludedID int64) error {
	var rows []struct {
		Phone string      `db:"phone"`
		Email null.String `db:"email"`
	}
	q := `SELECT phone, email FROM "user" WHERE (phone = $1 OR (email IS NOT NULL AND email = $2)) AND id <> $3 LIMIT 2`
	if err := repo.db.SelectContext(ctx, &rows, q, phone, email, excludedID); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if phone != "" && r.Phone == phone {
			return user.ErrPhoneExists
		}
	}
	for _, r := range rows {
		if email != "" && r.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (phone, name, number, email, type, gender, title, avatar, school_id, password_hash, created_at, updated_at, last_login)
		VALUES (:phone, :name, :number, :email, :type, :gender, :title, :avatar, :school_id, :password_hash, :created_at, :updated_at, :last_login)
		RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, toUserRow(usr))
	if err != nil {
		if err := trapUserConflict(err); err != nil {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row  userRow
		cond string
		arg  interface{}
	)
	switch {
	case filter.ID != 0:
		cond, arg = "id = $1", filter.ID
	case filter.Phone != "":
		cond, arg = "phone = $1", filter.Phone
	case filter.Email != "":
		cond, arg = "email = $1", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	q := fmt.Sprintf(`SELECT %s FROM "user" WHERE %s`, userColumns, cond)
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.IDs != nil {
			conds = append(conds, "id = ANY("+arg(pq.Array(filter.IDs))+")")
		}
		if filter.Type != "" {
			conds = append(conds, "type = "+arg(filter.Type))
		}
		if filter.NumberPrefix != "" {
			conds = append(conds, "number LIKE "+arg(escapeLike(filter.NumberPrefix)+"%"))
		}
		if filter.NamePrefix != "" {
			conds = append(conds, "name LIKE "+arg(escapeLike(filter.NamePrefix)+"%"))
		}
	}

	q := fmt.Sprintf(`SELECT %s FROM "user"`, userColumns) + where(conds) + orderBy(ordering, userOrderColumns, "id")
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET
		phone = :phone, name = :name, number = :number, email = :email, type = :type, gender = :gender,
		title = :title, avatar = :avatar, school_id = :school_id, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		if err := trapUserConflict(err); err != nil {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err := checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// trapUserConflict maps unique violations on "user" to the matching domain error, nil otherwise.
func trapUserConflict(err error) error {
	constraint, ok := uniqueConstraint(err)
	switch {
	case !ok:
		return nil
	case constraint == emailConstraint:
		return user.ErrEmailExists
	default:
		return user.ErrPhoneExists
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
