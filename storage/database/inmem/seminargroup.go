package inmemdb

import (
	"context"
	"sort"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/seminargroup"
)

type seminarGroupRepository struct {
	db *DB
}

var _ seminargroup.Repository = (*seminarGroupRepository)(nil) // interface compliance check

func NewSeminarGroupRepository(db *DB) *seminarGroupRepository {
	return &seminarGroupRepository{db: db}
}

func copyGrade(g *float64) *float64 {
	if g == nil {
		return nil
	}
	cp := *g
	return &cp
}

func (repo *seminarGroupRepository) copy(grp *seminargroup.SeminarGroup) seminargroup.SeminarGroup {
	cp := *grp
	cp.MemberIDs = copyIDs(grp.MemberIDs)
	cp.ReportGrade = copyGrade(grp.ReportGrade)
	cp.PresentationGrade = copyGrade(grp.PresentationGrade)
	cp.FinalGrade = copyGrade(grp.FinalGrade)
	return cp
}

func (repo *seminarGroupRepository) CreateSeminarGroup(_ context.Context, grp seminargroup.SeminarGroup) (seminargroup.SeminarGroup, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp.ID = repo.db.nextPK("seminar_group")
	stored := repo.copy(&grp)
	repo.db.seminarGroups[grp.ID] = &stored
	return repo.copy(&stored), nil
}

func (repo *seminarGroupRepository) GetSeminarGroup(_ context.Context, id int64) (seminargroup.SeminarGroup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if grp, ok := repo.db.seminarGroups[id]; ok {
		return repo.copy(grp), nil
	}
	return seminargroup.SeminarGroup{}, seminargroup.ErrNotFound
}

func (repo *seminarGroupRepository) hasTopic(groupID, topicID int64) bool {
	for _, gt := range repo.db.groupTopics {
		if gt.GroupID == groupID && gt.TopicID == topicID {
			return true
		}
	}
	return false
}

func (repo *seminarGroupRepository) QuerySeminarGroups(_ context.Context, filter seminargroup.QueryFilter) ([]seminargroup.SeminarGroup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]seminargroup.SeminarGroup, 0)
	for _, id := range sortedKeys(repo.db.seminarGroups) {
		grp := repo.db.seminarGroups[id]
		if filter.SeminarIDs != nil && !core.Int64sContain(filter.SeminarIDs, grp.SeminarID) {
			continue
		}
		if filter.ClassID != 0 && grp.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != 0 && !grp.HasMember(filter.StudentID) {
			continue
		}
		if filter.TopicID != 0 && !repo.hasTopic(grp.ID, filter.TopicID) {
			continue
		}
		groups = append(groups, repo.copy(grp))
	}
	return groups, nil
}

func (repo *seminarGroupRepository) UpdateSeminarGroup(_ context.Context, grp seminargroup.SeminarGroup) (seminargroup.SeminarGroup, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.seminarGroups[grp.ID]
	if !ok {
		return seminargroup.SeminarGroup{}, seminargroup.ErrNotFound
	}
	orig.LeaderID = grp.LeaderID
	orig.Report = grp.Report
	orig.ReportGrade = copyGrade(grp.ReportGrade)
	orig.PresentationGrade = copyGrade(grp.PresentationGrade)
	orig.FinalGrade = copyGrade(grp.FinalGrade)
	return repo.copy(orig), nil
}

func (repo *seminarGroupRepository) CreateGroupTopic(_ context.Context, gt seminargroup.GroupTopic, groupLimit int) (seminargroup.GroupTopic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp, ok := repo.db.seminarGroups[gt.GroupID]
	if !ok {
		return seminargroup.GroupTopic{}, seminargroup.ErrNotFound
	}
	if repo.hasTopic(gt.GroupID, gt.TopicID) {
		return seminargroup.GroupTopic{}, seminargroup.ErrTopicSelected
	}
	if groupLimit > 0 && repo.countTopicGroups(gt.TopicID, grp.ClassID) >= groupLimit {
		return seminargroup.GroupTopic{}, seminargroup.ErrTopicFull
	}
	gt.ID = repo.db.nextPK("seminar_group_topic")
	gt.PresentationGrade = copyGrade(gt.PresentationGrade)
	stored := gt
	repo.db.groupTopics[gt.ID] = &stored
	return gt, nil
}

func (repo *seminarGroupRepository) GetGroupTopic(_ context.Context, groupID, topicID int64) (seminargroup.GroupTopic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, gt := range repo.db.groupTopics {
		if gt.GroupID == groupID && gt.TopicID == topicID {
			cp := *gt
			cp.PresentationGrade = copyGrade(gt.PresentationGrade)
			return cp, nil
		}
	}
	return seminargroup.GroupTopic{}, seminargroup.ErrTopicNotSelected
}

func (repo *seminarGroupRepository) QueryGroupTopics(_ context.Context, groupID int64) ([]seminargroup.GroupTopic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	gts := make([]seminargroup.GroupTopic, 0)
	for _, id := range sortedKeys(repo.db.groupTopics) {
		if gt := repo.db.groupTopics[id]; gt.GroupID == groupID {
			cp := *gt
			cp.PresentationGrade = copyGrade(gt.PresentationGrade)
			gts = append(gts, cp)
		}
	}
	return gts, nil
}

func (repo *seminarGroupRepository) UpdateGroupTopic(_ context.Context, gt seminargroup.GroupTopic) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.groupTopics[gt.ID]
	if !ok {
		return seminargroup.ErrTopicNotSelected
	}
	orig.PresentationGrade = copyGrade(gt.PresentationGrade)
	return nil
}

func (repo *seminarGroupRepository) DeleteGroupTopic(_ context.Context, groupID, topicID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, gt := range repo.db.groupTopics {
		if gt.GroupID == groupID && gt.TopicID == topicID {
			repo.db.deleteGroupTopic(id)
			return nil
		}
	}
	return seminargroup.ErrTopicNotSelected
}

func (repo *seminarGroupRepository) CountTopicGroups(_ context.Context, topicID, classID int64) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.countTopicGroups(topicID, classID), nil
}

func (repo *seminarGroupRepository) countTopicGroups(topicID, classID int64) int {
	var count int
	for _, gt := range repo.db.groupTopics {
		if gt.TopicID != topicID {
			continue
		}
		if grp, ok := repo.db.seminarGroups[gt.GroupID]; ok && (classID == 0 || grp.ClassID == classID) {
			count++
		}
	}
	return count
}

func (repo *seminarGroupRepository) SaveScore(_ context.Context, score seminargroup.Score) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groupTopics[score.GroupTopicID]; !ok {
		return seminargroup.ErrTopicNotSelected
	}
	repo.db.scores[scoreKey{groupTopicID: score.GroupTopicID, studentID: score.StudentID}] = score.Grade
	return nil
}

func (repo *seminarGroupRepository) QueryScores(_ context.Context, groupTopicID int64) ([]seminargroup.Score, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	scores := make([]seminargroup.Score, 0)
	for key, grade := range repo.db.scores {
		if key.groupTopicID == groupTopicID {
			scores = append(scores, seminargroup.Score{GroupTopicID: key.groupTopicID, StudentID: key.studentID, Grade: grade})
		}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].StudentID < scores[j].StudentID })
	return scores, nil
}
