package school

import (
	"context"

	"github.com/xmu-se/crms/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("school not found")
	ErrExists   = core.NewConflictError("this school is already registered")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchool(ctx context.Context, id int64) (School, error)
		// QuerySchools applies AND operation on non-empty QueryFilter fields, ordered by name.
		QuerySchools(ctx context.Context, filter QueryFilter) ([]School, error)
		ListProvinces(ctx context.Context) ([]string, error)
		ListCities(ctx context.Context, province string) ([]string, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ns NewSchool) (School, error)
		GetByID(ctx context.Context, id int64) (School, error)
		Query(ctx context.Context, filter QueryFilter) ([]School, error)
		ListProvinces(ctx context.Context) ([]string, error)
		ListCities(ctx context.Context, province string) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	existing, err := svc.repo.QuerySchools(ctx, QueryFilter{Province: ns.Province, City: ns.City})
	if err != nil {
		return School{}, err
	}
	for _, sch := range existing {
		if sch.Name == ns.Name {
			return School{}, ErrExists
		}
	}
	return svc.repo.CreateSchool(ctx, School{Name: ns.Name, Province: ns.Province, City: ns.City})
}

func (svc *Service) GetByID(ctx context.Context, id int64) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]School, error) {
	filter.Clean()
	return svc.repo.QuerySchools(ctx, filter)
}

func (svc *Service) ListProvinces(ctx context.Context) ([]string, error) {
	return svc.repo.ListProvinces(ctx)
}

func (svc *Service) ListCities(ctx context.Context, province string) ([]string, error) {
	return svc.repo.ListCities(ctx, core.CleanString(province))
}
