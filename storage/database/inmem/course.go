package inmemdb

import (
	"context"
	"sort"

	"github.com/xmu-se/crms/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs.ID = repo.db.nextPK("course")
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}

func (repo *courseRepository) QueryCoursesByTeacher(_ context.Context, teacherID int64) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, id := range sortedKeys(repo.db.courses) {
		if crs := repo.db.courses[id]; crs.TeacherID == teacherID {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByStudent(_ context.Context, studentID int64) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courseIDs := make(map[int64]bool)
	for key := range repo.db.selections {
		if key.studentID == studentID {
			if cls, ok := repo.db.classes[key.classID]; ok {
				courseIDs[cls.CourseID] = true
			}
		}
	}
	courses := make([]course.Course, 0, len(courseIDs))
	for _, id := range sortedKeys(repo.db.courses) {
		if courseIDs[id] {
			courses = append(courses, *repo.db.courses[id])
		}
	}
	return courses, nil
}

func (repo *courseRepository) CountClassesAndStudents(_ context.Context, courseID int64) (int, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var numClass int
	students := make(map[int64]bool)
	for _, cls := range repo.db.classes {
		if cls.CourseID != courseID {
			continue
		}
		numClass++
		for key := range repo.db.selections {
			if key.classID == cls.ID {
				students[key.studentID] = true
			}
		}
	}
	return numClass, len(students), nil
}

func (repo *courseRepository) CreateClass(_ context.Context, cls course.Class) (course.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[cls.CourseID]; !ok {
		return course.Class{}, course.ErrNotFound
	}
	cls.ID = repo.db.nextPK("class")
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *courseRepository) GetClass(_ context.Context, id int64) (course.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return course.Class{}, course.ErrClassNotFound
}

func (repo *courseRepository) UpdateClass(_ context.Context, cls course.Class) (course.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return course.Class{}, course.ErrClassNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *courseRepository) DeleteClass(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return course.ErrClassNotFound
	}
	repo.db.deleteClass(id)
	return nil
}

func (repo *courseRepository) queryClasses(keep func(cls *course.Class) bool) []course.Class {
	classes := make([]course.Class, 0)
	for _, id := range sortedKeys(repo.db.classes) {
		if cls := repo.db.classes[id]; keep(cls) {
			classes = append(classes, *cls)
		}
	}
	return classes
}

func (repo *courseRepository) QueryClassesByCourse(_ context.Context, courseID int64) ([]course.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryClasses(func(cls *course.Class) bool { return cls.CourseID == courseID }), nil
}

func (repo *courseRepository) QueryClassesByStudent(_ context.Context, studentID int64) ([]course.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryClasses(func(cls *course.Class) bool {
		return repo.db.selections[selectionKey{classID: cls.ID, studentID: studentID}]
	}), nil
}

func (repo *courseRepository) QueryClassesByTeacher(_ context.Context, teacherID int64) ([]course.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryClasses(func(cls *course.Class) bool {
		crs, ok := repo.db.courses[cls.CourseID]
		return ok && crs.TeacherID == teacherID
	}), nil
}

func (repo *courseRepository) CreateSelection(_ context.Context, classID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := selectionKey{classID: classID, studentID: studentID}
	if repo.db.selections[key] {
		return course.ErrAlreadyEnrolled
	}
	repo.db.selections[key] = true
	return nil
}

func (repo *courseRepository) DeleteSelection(_ context.Context, classID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := selectionKey{classID: classID, studentID: studentID}
	if !repo.db.selections[key] {
		return course.ErrNotEnrolled
	}
	delete(repo.db.selections, key)
	repo.db.leaveFixGroups(classID, studentID)
	return nil
}

func (repo *courseRepository) ListStudentIDs(_ context.Context, classID int64) ([]int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]int64, 0)
	for key := range repo.db.selections {
		if key.classID == classID {
			ids = append(ids, key.studentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, classID, studentID int64) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.selections[selectionKey{classID: classID, studentID: studentID}], nil
}
