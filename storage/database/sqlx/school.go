package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/school"
)

type schoolRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Province string `db:"province"`
	City     string `db:"city"`
}

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	q := `INSERT INTO school (name, province, city) VALUES (:name, :province, :city) RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, schoolRow(sch))
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	sch.ID = id
	return sch, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id int64) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, province, city FROM school WHERE id = $1`, id); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "getting school")
	}
	return school.School(row), nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter school.QueryFilter) ([]school.School, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Province != "" {
		args = append(args, filter.Province)
		conds = append(conds, fmt.Sprintf("province = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}

	var rows []schoolRow
	q := `SELECT id, name, province, city FROM school` + where(conds) + ` ORDER BY name, id`
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, school.School(row))
	}
	return schools, nil
}

func (repo *schoolRepository) ListProvinces(ctx context.Context) ([]string, error) {
	provinces := make([]string, 0)
	q := `SELECT DISTINCT province FROM school WHERE province <> '' ORDER BY province`
	if err := repo.db.SelectContext(ctx, &provinces, q); err != nil {
		return nil, errors.Wrap(err, "listing provinces")
	}
	return provinces, nil
}

func (repo *schoolRepository) ListCities(ctx context.Context, province string) ([]string, error) {
	cities := make([]string, 0)
	q := `SELECT DISTINCT city FROM school WHERE city <> '' AND ($1 = '' OR province = $1) ORDER BY city`
	if err := repo.db.SelectContext(ctx, &cities, q, province); err != nil {
		return nil, errors.Wrap(err, "listing cities")
	}
	return cities, nil
}
