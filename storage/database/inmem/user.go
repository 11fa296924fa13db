package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, phone, email string, excludedID int64) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.ID == excludedID {
			continue
		}
		if phone != "" && usr.Phone == phone {
			return user.ErrPhoneExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = repo.db.nextPK("user")
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if (filter.Phone != "" && usr.Phone == filter.Phone) || (filter.Email != "" && usr.Email == filter.Email) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.IDs != nil && !core.Int64sContain(filter.IDs, usr.ID) {
				continue
			}
			if filter.Type != "" && usr.Type != filter.Type {
				continue
			}
			if filter.NumberPrefix != "" && !strings.HasPrefix(usr.Number, filter.NumberPrefix) {
				continue
			}
			if filter.NamePrefix != "" && !strings.HasPrefix(usr.Name, filter.NamePrefix) {
				continue
			}
		}
		users = append(users, *usr)
	}

	sort.SliceStable(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if len(ordering) > 0 {
		sort.SliceStable(users, func(i, j int) bool {
			for _, ord := range ordering {
				a, b := userSortKey(users[i], ord.Field), userSortKey(users[j], ord.Field)
				if a == b {
					continue
				}
				if ord.Ascending {
					return a < b
				}
				return a > b
			}
			return false
		})
	}
	return users, nil
}

func userSortKey(usr user.User, field string) string {
	switch field {
	case "name":
		return usr.Name
	case "number":
		return usr.Number
	case "phone":
		return usr.Phone
	}
	return ""
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}
