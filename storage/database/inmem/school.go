package inmemdb

import (
	"context"
	"sort"

	"github.com/xmu-se/crms/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch.ID = repo.db.nextPK("school")
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id int64) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter school.QueryFilter) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := make([]school.School, 0)
	for _, sch := range repo.db.schools {
		if (filter.Province == "" || sch.Province == filter.Province) && (filter.City == "" || sch.City == filter.City) {
			schools = append(schools, *sch)
		}
	}
	sort.Slice(schools, func(i, j int) bool {
		if schools[i].Name == schools[j].Name {
			return schools[i].ID < schools[j].ID
		}
		return schools[i].Name < schools[j].Name
	})
	return schools, nil
}

func (repo *schoolRepository) ListProvinces(_ context.Context) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]bool)
	provinces := make([]string, 0)
	for _, sch := range repo.db.schools {
		if !seen[sch.Province] {
			seen[sch.Province] = true
			provinces = append(provinces, sch.Province)
		}
	}
	sort.Strings(provinces)
	return provinces, nil
}

func (repo *schoolRepository) ListCities(_ context.Context, province string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]bool)
	cities := make([]string, 0)
	for _, sch := range repo.db.schools {
		if (province == "" || sch.Province == province) && !seen[sch.City] {
			seen[sch.City] = true
			cities = append(cities, sch.City)
		}
	}
	sort.Strings(cities)
	return cities, nil
}
