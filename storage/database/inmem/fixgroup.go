package inmemdb

import (
	"context"

	"github.com/xmu-se/crms/core/fixgroup"
)

type fixGroupRepository struct {
	db *DB
}

var _ fixgroup.Repository = (*fixGroupRepository)(nil) // interface compliance check

func NewFixGroupRepository(db *DB) *fixGroupRepository {
	return &fixGroupRepository{db: db}
}

func (repo *fixGroupRepository) copy(grp *fixgroup.FixGroup) fixgroup.FixGroup {
	cp := *grp
	cp.MemberIDs = copyIDs(grp.MemberIDs)
	return cp
}

// grouped reports whether studentID already belongs to a fixed group of classID. The lock must be held.
func (repo *fixGroupRepository) grouped(classID, studentID int64) bool {
	for _, grp := range repo.db.fixGroups {
		if grp.ClassID == classID && grp.HasMember(studentID) {
			return true
		}
	}
	return false
}

func (repo *fixGroupRepository) CreateFixGroup(_ context.Context, grp fixgroup.FixGroup) (fixgroup.FixGroup, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, studentID := range grp.MemberIDs {
		if repo.grouped(grp.ClassID, studentID) {
			return fixgroup.FixGroup{}, fixgroup.ErrAlreadyGrouped
		}
	}
	grp.ID = repo.db.nextPK("fix_group")
	grp.MemberIDs = copyIDs(grp.MemberIDs)
	repo.db.fixGroups[grp.ID] = &grp
	return repo.copy(&grp), nil
}

func (repo *fixGroupRepository) GetFixGroupByStudent(_ context.Context, classID, studentID int64) (fixgroup.FixGroup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, id := range sortedKeys(repo.db.fixGroups) {
		if grp := repo.db.fixGroups[id]; grp.ClassID == classID && grp.HasMember(studentID) {
			return repo.copy(grp), nil
		}
	}
	return fixgroup.FixGroup{}, fixgroup.ErrNotFound
}

func (repo *fixGroupRepository) QueryFixGroupsByClass(_ context.Context, classID int64) ([]fixgroup.FixGroup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]fixgroup.FixGroup, 0)
	for _, id := range sortedKeys(repo.db.fixGroups) {
		if grp := repo.db.fixGroups[id]; grp.ClassID == classID {
			groups = append(groups, repo.copy(grp))
		}
	}
	return groups, nil
}

func (repo *fixGroupRepository) AddFixGroupMember(_ context.Context, groupID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp, ok := repo.db.fixGroups[groupID]
	if !ok {
		return fixgroup.ErrNotFound
	}
	if grp.HasMember(studentID) {
		return nil
	}
	if repo.grouped(grp.ClassID, studentID) {
		return fixgroup.ErrAlreadyGrouped
	}
	grp.MemberIDs = append(grp.MemberIDs, studentID)
	return nil
}

func (repo *fixGroupRepository) RemoveFixGroupMember(_ context.Context, groupID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp, ok := repo.db.fixGroups[groupID]
	if !ok {
		return fixgroup.ErrNotFound
	}
	if !grp.HasMember(studentID) {
		return fixgroup.ErrNotMember
	}
	grp.MemberIDs = removeID(grp.MemberIDs, studentID)
	return nil
}

func (repo *fixGroupRepository) SetFixGroupLeader(_ context.Context, groupID, leaderID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp, ok := repo.db.fixGroups[groupID]
	if !ok {
		return fixgroup.ErrNotFound
	}
	grp.LeaderID = leaderID
	return nil
}

func (repo *fixGroupRepository) DeleteFixGroup(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.fixGroups[id]; !ok {
		return fixgroup.ErrNotFound
	}
	delete(repo.db.fixGroups, id)
	return nil
}
