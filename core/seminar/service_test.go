package seminar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/tests"
)

func TestUpdateSeminar_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	start := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	orig := seminar.Seminar{ID: 1, Name: "Use cases", Description: "week 2", IsFixed: true, StartTime: start, EndTime: start.Add(2 * time.Hour)}

	t.Run("empty fields keep their value", func(t *testing.T) {
		us := seminar.UpdateSeminar{Name: "  "}
		require.NoError(t, us.Validate(orig, validate))
		assert.Equal(t, "Use cases", us.Name)
		assert.Equal(t, "week 2", us.Description)
		assert.Equal(t, seminar.GroupingFixed, us.GroupingMethod)
		assert.Equal(t, orig.EndTime, us.EndTime)
	})

	t.Run("grouping method is case insensitive", func(t *testing.T) {
		us := seminar.UpdateSeminar{GroupingMethod: "Random"}
		require.NoError(t, us.Validate(orig, validate))
		assert.Equal(t, seminar.GroupingRandom, us.GroupingMethod)
	})

	t.Run("ends before it starts", func(t *testing.T) {
		us := seminar.UpdateSeminar{EndTime: start.Add(-time.Hour)}
		assert.Error(t, us.Validate(orig, validate))
	})
}

func TestService(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	svc := env.SeminarSvc

	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	other := env.CreateUser(t, "13800000002", "Bob", "T002", user.TypeTeacher)
	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	start := time.Date(2021, 3, 1, 16, 0, 0, 0, time.FixedZone("CST", 8*3600))

	t.Run("create as another teacher", func(t *testing.T) {
		_, err := svc.Create(ctx, crs.ID, other.ID, seminar.NewSeminar{Name: "Use cases", StartTime: start, EndTime: start.Add(time.Hour)})
		assert.Equal(t, course.ErrNotCourseTeacher, err)
	})

	sem, err := svc.Create(ctx, crs.ID, teacher.ID, seminar.NewSeminar{
		Name:           "Use cases",
		GroupingMethod: seminar.GroupingRandom,
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, sem.IsFixed)
	assert.Equal(t, time.UTC, sem.StartTime.Location())
	assert.Equal(t, 8, sem.StartTime.Hour())

	t.Run("owned", func(t *testing.T) {
		got, gotCrs, err := svc.GetOwned(ctx, sem.ID, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, sem.ID, got.ID)
		assert.Equal(t, crs.ID, gotCrs.ID)

		_, _, err = svc.GetOwned(ctx, sem.ID, other.ID)
		assert.Equal(t, course.ErrNotCourseTeacher, err)

		_, _, err = svc.GetOwned(ctx, 99, teacher.ID)
		assert.Equal(t, seminar.ErrNotFound, err)
	})

	t.Run("query by unknown course", func(t *testing.T) {
		_, err := svc.QueryByCourse(ctx, 99)
		assert.Equal(t, course.ErrNotFound, err)
	})

	tpc, err := svc.CreateTopic(ctx, sem.ID, teacher.ID, seminar.NewTopic{Serial: "A", Name: "Login", GroupLimit: 2, GroupMemberLimit: 4})
	require.NoError(t, err)

	t.Run("topics", func(t *testing.T) {
		_, err := svc.CreateTopic(ctx, sem.ID, other.ID, seminar.NewTopic{Name: "Logout"})
		assert.Equal(t, course.ErrNotCourseTeacher, err)

		_, err = svc.GetOwnedTopic(ctx, tpc.ID, other.ID)
		assert.Equal(t, course.ErrNotCourseTeacher, err)

		limit := 0
		updated, err := svc.UpdateTopic(ctx, tpc, seminar.UpdateTopic{Serial: "B", Name: "Sign in", GroupLimit: &limit})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.GroupNumberLimit)
		assert.Equal(t, 4, updated.GroupStudentLimit)

		topics, err := svc.QueryTopics(ctx, sem.ID)
		require.NoError(t, err)
		require.Len(t, topics, 1)
		assert.Equal(t, "Sign in", topics[0].Name)

		_, err = svc.QueryTopics(ctx, 99)
		assert.Equal(t, seminar.ErrNotFound, err)
	})

	t.Run("delete cascades topics", func(t *testing.T) {
		assert.Equal(t, course.ErrNotCourseTeacher, svc.Delete(ctx, sem.ID, other.ID))
		require.NoError(t, svc.Delete(ctx, sem.ID, teacher.ID))

		_, err := svc.GetTopic(ctx, tpc.ID)
		assert.Equal(t, seminar.ErrTopicNotFound, err)

		seminars, err := svc.QueryByCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Empty(t, seminars)
	})
}
