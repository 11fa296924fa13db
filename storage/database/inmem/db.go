// Package inmemdb is a map-backed storage engine used in DEV and tests.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
)

type (
	selectionKey struct{ classID, studentID int64 }
	scoreKey     struct{ groupTopicID, studentID int64 }

	// DB holds every table behind a single lock, so that cascades are atomic.
	DB struct {
		mu sync.RWMutex
		pk map[string]int64

		users         map[int64]*user.User
		schools       map[int64]*school.School
		courses       map[int64]*course.Course
		classes       map[int64]*course.Class
		selections    map[selectionKey]bool
		seminars      map[int64]*seminar.Seminar
		topics        map[int64]*seminar.Topic
		fixGroups     map[int64]*fixgroup.FixGroup
		seminarGroups map[int64]*seminargroup.SeminarGroup
		groupTopics   map[int64]*seminargroup.GroupTopic
		scores        map[scoreKey]int
	}
)

func Open() *DB {
	return &DB{
		pk:            make(map[string]int64),
		users:         make(map[int64]*user.User),
		schools:       make(map[int64]*school.School),
		courses:       make(map[int64]*course.Course),
		classes:       make(map[int64]*course.Class),
		selections:    make(map[selectionKey]bool),
		seminars:      make(map[int64]*seminar.Seminar),
		topics:        make(map[int64]*seminar.Topic),
		fixGroups:     make(map[int64]*fixgroup.FixGroup),
		seminarGroups: make(map[int64]*seminargroup.SeminarGroup),
		groupTopics:   make(map[int64]*seminargroup.GroupTopic),
		scores:        make(map[scoreKey]int),
	}
}

// Close satisfies io.Closer; data lives as long as the process.
func (db *DB) Close() error { return nil }

// nextPK must be called with the write lock held.
func (db *DB) nextPK(table string) int64 {
	db.pk[table]++
	return db.pk[table]
}

func copyIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return cp
}

func removeID(ids []int64, id int64) []int64 {
	kept := ids[:0]
	for _, i := range ids {
		if i != id {
			kept = append(kept, i)
		}
	}
	return kept
}

func sortedKeys(m interface{}) []int64 {
	var keys []int64
	switch t := m.(type) {
	case map[int64]*course.Course:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*course.Class:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*seminar.Seminar:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*seminar.Topic:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*fixgroup.FixGroup:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*seminargroup.SeminarGroup:
		for k := range t {
			keys = append(keys, k)
		}
	case map[int64]*seminargroup.GroupTopic:
		for k := range t {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// cascades; all must be called with the write lock held

func (db *DB) deleteCourse(id int64) {
	for _, clsID := range sortedKeys(db.classes) {
		if db.classes[clsID].CourseID == id {
			db.deleteClass(clsID)
		}
	}
	for _, semID := range sortedKeys(db.seminars) {
		if db.seminars[semID].CourseID == id {
			db.deleteSeminar(semID)
		}
	}
	delete(db.courses, id)
}

func (db *DB) deleteClass(id int64) {
	for key := range db.selections {
		if key.classID == id {
			delete(db.selections, key)
		}
	}
	for gid, grp := range db.fixGroups {
		if grp.ClassID == id {
			delete(db.fixGroups, gid)
		}
	}
	for gid, grp := range db.seminarGroups {
		if grp.ClassID == id {
			db.deleteSeminarGroup(gid)
		}
	}
	delete(db.classes, id)
}

// leaveFixGroups takes studentID out of its fixed group in classID; emptied groups are deleted.
func (db *DB) leaveFixGroups(classID, studentID int64) {
	for gid, grp := range db.fixGroups {
		if grp.ClassID != classID || !grp.HasMember(studentID) {
			continue
		}
		grp.MemberIDs = removeID(grp.MemberIDs, studentID)
		if grp.LeaderID == studentID {
			grp.LeaderID = 0
		}
		if len(grp.MemberIDs) == 0 {
			delete(db.fixGroups, gid)
		}
	}
}

func (db *DB) deleteSeminar(id int64) {
	for tid, tpc := range db.topics {
		if tpc.SeminarID == id {
			db.deleteTopic(tid)
		}
	}
	for gid, grp := range db.seminarGroups {
		if grp.SeminarID == id {
			db.deleteSeminarGroup(gid)
		}
	}
	delete(db.seminars, id)
}

func (db *DB) deleteTopic(id int64) {
	for gtID, gt := range db.groupTopics {
		if gt.TopicID == id {
			db.deleteGroupTopic(gtID)
		}
	}
	delete(db.topics, id)
}

func (db *DB) deleteSeminarGroup(id int64) {
	for gtID, gt := range db.groupTopics {
		if gt.GroupID == id {
			db.deleteGroupTopic(gtID)
		}
	}
	delete(db.seminarGroups, id)
}

func (db *DB) deleteGroupTopic(id int64) {
	for key := range db.scores {
		if key.groupTopicID == id {
			delete(db.scores, key)
		}
	}
	delete(db.groupTopics, id)
}
