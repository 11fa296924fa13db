package inmemdb

import (
	"context"

	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/seminar"
)

type seminarRepository struct {
	db *DB
}

var _ seminar.Repository = (*seminarRepository)(nil) // interface compliance check

func NewSeminarRepository(db *DB) *seminarRepository {
	return &seminarRepository{db: db}
}

func (repo *seminarRepository) CreateSeminar(_ context.Context, sem seminar.Seminar) (seminar.Seminar, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[sem.CourseID]; !ok {
		return seminar.Seminar{}, course.ErrNotFound
	}
	sem.ID = repo.db.nextPK("seminar")
	repo.db.seminars[sem.ID] = &sem
	return sem, nil
}

func (repo *seminarRepository) GetSeminar(_ context.Context, id int64) (seminar.Seminar, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sem, ok := repo.db.seminars[id]; ok {
		return *sem, nil
	}
	return seminar.Seminar{}, seminar.ErrNotFound
}

func (repo *seminarRepository) UpdateSeminar(_ context.Context, sem seminar.Seminar) (seminar.Seminar, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.seminars[sem.ID]; !ok {
		return seminar.Seminar{}, seminar.ErrNotFound
	}
	repo.db.seminars[sem.ID] = &sem
	return sem, nil
}

func (repo *seminarRepository) DeleteSeminar(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.seminars[id]; !ok {
		return seminar.ErrNotFound
	}
	repo.db.deleteSeminar(id)
	return nil
}

func (repo *seminarRepository) QuerySeminarsByCourse(_ context.Context, courseID int64) ([]seminar.Seminar, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seminars := make([]seminar.Seminar, 0)
	for _, id := range sortedKeys(repo.db.seminars) {
		if sem := repo.db.seminars[id]; sem.CourseID == courseID {
			seminars = append(seminars, *sem)
		}
	}
	return seminars, nil
}

func (repo *seminarRepository) CreateTopic(_ context.Context, tpc seminar.Topic) (seminar.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.seminars[tpc.SeminarID]; !ok {
		return seminar.Topic{}, seminar.ErrNotFound
	}
	tpc.ID = repo.db.nextPK("topic")
	repo.db.topics[tpc.ID] = &tpc
	return tpc, nil
}

func (repo *seminarRepository) GetTopic(_ context.Context, id int64) (seminar.Topic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if tpc, ok := repo.db.topics[id]; ok {
		return *tpc, nil
	}
	return seminar.Topic{}, seminar.ErrTopicNotFound
}

func (repo *seminarRepository) UpdateTopic(_ context.Context, tpc seminar.Topic) (seminar.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.topics[tpc.ID]; !ok {
		return seminar.Topic{}, seminar.ErrTopicNotFound
	}
	repo.db.topics[tpc.ID] = &tpc
	return tpc, nil
}

func (repo *seminarRepository) DeleteTopic(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.topics[id]; !ok {
		return seminar.ErrTopicNotFound
	}
	repo.db.deleteTopic(id)
	return nil
}

func (repo *seminarRepository) QueryTopicsBySeminar(_ context.Context, seminarID int64) ([]seminar.Topic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	topics := make([]seminar.Topic, 0)
	for _, id := range sortedKeys(repo.db.topics) {
		if tpc := repo.db.topics[id]; tpc.SeminarID == seminarID {
			topics = append(topics, *tpc)
		}
	}
	return topics, nil
}
