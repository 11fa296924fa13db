package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/storage/database"
	sqlxrepos "github.com/xmu-se/crms/storage/database/sqlx"
)

// openDB connects to the TEST_ postgres database, skipping when none is configured.
func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}
	prev, had := os.LookupEnv("ENV")
	require.NoError(t, os.Setenv("ENV", "TEST"))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv("ENV", prev)
		} else {
			_ = os.Unsetenv("ENV")
		}
	})

	conf := core.NewConfig()
	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sqlx.DB
}

func (f fixture) user(typ string) int64 {
	now := time.Now().UTC()
	usr, err := sqlxrepos.NewUserRepository(f.db).CreateUser(f.ctx, user.User{
		Phone:        uuid.New().String(),
		Type:         typ,
		PasswordHash: []byte("-"),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(f.t, err)
	return usr.ID
}

func (f fixture) class(teacherID int64) course.Class {
	repo := sqlxrepos.NewCourseRepository(f.db)
	start := time.Date(2021, 2, 22, 0, 0, 0, 0, time.UTC)
	crs, err := repo.CreateCourse(f.ctx, course.Course{
		TeacherID:              teacherID,
		Name:                   "OOSE",
		StartDate:              start,
		EndDate:                start.AddDate(0, 3, 0),
		ReportPercentage:       50,
		PresentationPercentage: 50,
	})
	require.NoError(f.t, err)
	cls, err := repo.CreateClass(f.ctx, course.Class{CourseID: crs.ID, Name: "Class 1"})
	require.NoError(f.t, err)
	return cls
}

func (f fixture) enroll(classID int64, studentIDs ...int64) {
	repo := sqlxrepos.NewCourseRepository(f.db)
	for _, id := range studentIDs {
		require.NoError(f.t, repo.CreateSelection(f.ctx, classID, id))
	}
}

func TestCourseRepository_DeleteSelection(t *testing.T) {
	f := fixture{t: t, ctx: context.Background(), db: openDB(t)}
	cls := f.class(f.user(user.TypeTeacher))
	s1, s2 := f.user(user.TypeStudent), f.user(user.TypeStudent)
	f.enroll(cls.ID, s1, s2)

	courses := sqlxrepos.NewCourseRepository(f.db)
	groups := sqlxrepos.NewFixGroupRepository(f.db)
	grp, err := groups.CreateFixGroup(f.ctx, fixgroup.FixGroup{ClassID: cls.ID, LeaderID: s1, MemberIDs: []int64{s1, s2}})
	require.NoError(t, err)

	require.NoError(t, courses.DeleteSelection(f.ctx, cls.ID, s1))
	got, err := groups.GetFixGroupByStudent(f.ctx, cls.ID, s2)
	require.NoError(t, err)
	assert.Equal(t, grp.ID, got.ID)
	assert.Equal(t, []int64{s2}, got.MemberIDs)
	assert.Zero(t, got.LeaderID, "a withdrawn leader no longer leads")

	require.NoError(t, courses.DeleteSelection(f.ctx, cls.ID, s2))
	all, err := groups.QueryFixGroupsByClass(f.ctx, cls.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Equal(t, course.ErrNotEnrolled, errors.Cause(courses.DeleteSelection(f.ctx, cls.ID, s2)))
}

func TestFixGroupRepository_OneGroupPerClass(t *testing.T) {
	f := fixture{t: t, ctx: context.Background(), db: openDB(t)}
	cls := f.class(f.user(user.TypeTeacher))
	s1, s2 := f.user(user.TypeStudent), f.user(user.TypeStudent)
	f.enroll(cls.ID, s1, s2)

	repo := sqlxrepos.NewFixGroupRepository(f.db)
	g1, err := repo.CreateFixGroup(f.ctx, fixgroup.FixGroup{ClassID: cls.ID, MemberIDs: []int64{s1}})
	require.NoError(t, err)
	g2, err := repo.CreateFixGroup(f.ctx, fixgroup.FixGroup{ClassID: cls.ID, MemberIDs: []int64{s2}})
	require.NoError(t, err)

	assert.NoError(t, repo.AddFixGroupMember(f.ctx, g1.ID, s1))
	assert.Equal(t, fixgroup.ErrAlreadyGrouped, errors.Cause(repo.AddFixGroupMember(f.ctx, g2.ID, s1)))
	_, err = repo.CreateFixGroup(f.ctx, fixgroup.FixGroup{ClassID: cls.ID, MemberIDs: []int64{s1}})
	assert.Equal(t, fixgroup.ErrAlreadyGrouped, errors.Cause(err))
	assert.Equal(t, fixgroup.ErrNotFound, errors.Cause(repo.AddFixGroupMember(f.ctx, 1<<40, s1)))
}

func TestSeminarGroupRepository_GroupLimit(t *testing.T) {
	f := fixture{t: t, ctx: context.Background(), db: openDB(t)}
	cls := f.class(f.user(user.TypeTeacher))
	s1, s2 := f.user(user.TypeStudent), f.user(user.TypeStudent)
	f.enroll(cls.ID, s1, s2)

	seminars := sqlxrepos.NewSeminarRepository(f.db)
	start := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	sem, err := seminars.CreateSeminar(f.ctx, seminar.Seminar{CourseID: cls.CourseID, Name: "Requirements", StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)
	tpc, err := seminars.CreateTopic(f.ctx, seminar.Topic{SeminarID: sem.ID, Name: "Use cases", GroupNumberLimit: 1})
	require.NoError(t, err)

	repo := sqlxrepos.NewSeminarGroupRepository(f.db)
	g1, err := repo.CreateSeminarGroup(f.ctx, seminargroup.SeminarGroup{SeminarID: sem.ID, ClassID: cls.ID, LeaderID: s1, MemberIDs: []int64{s1}})
	require.NoError(t, err)
	g2, err := repo.CreateSeminarGroup(f.ctx, seminargroup.SeminarGroup{SeminarID: sem.ID, ClassID: cls.ID, LeaderID: s2, MemberIDs: []int64{s2}})
	require.NoError(t, err)

	_, err = repo.CreateGroupTopic(f.ctx, seminargroup.GroupTopic{GroupID: g1.ID, TopicID: tpc.ID}, tpc.GroupNumberLimit)
	require.NoError(t, err)
	_, err = repo.CreateGroupTopic(f.ctx, seminargroup.GroupTopic{GroupID: g1.ID, TopicID: tpc.ID}, 0)
	assert.Equal(t, seminargroup.ErrTopicSelected, errors.Cause(err))
	_, err = repo.CreateGroupTopic(f.ctx, seminargroup.GroupTopic{GroupID: g2.ID, TopicID: tpc.ID}, tpc.GroupNumberLimit)
	assert.Equal(t, seminargroup.ErrTopicFull, errors.Cause(err))
	_, err = repo.CreateGroupTopic(f.ctx, seminargroup.GroupTopic{GroupID: g2.ID, TopicID: 1 << 40}, 0)
	assert.Equal(t, seminar.ErrTopicNotFound, errors.Cause(err))

	tests := []struct {
		name    string
		classID int64
		want    int
	}{
		{name: "all classes", classID: 0, want: 1},
		{name: "the class", classID: cls.ID, want: 1},
		{name: "id beyond int4", classID: 1 << 40, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			count, err := repo.CountTopicGroups(f.ctx, tpc.ID, tt.classID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}
