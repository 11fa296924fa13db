package seminargroup_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/tests"
)

func TestService_AutoGroup(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	c1 := env.CreateClass(t, crs.ID, "Class 1")
	c2 := env.CreateClass(t, crs.ID, "Class 2")

	var c1IDs []int64
	for _, phone := range []string{"13800000011", "13800000012", "13800000013", "13800000014", "13800000015"} {
		c1IDs = append(c1IDs, env.CreateUser(t, phone, "S", phone, user.TypeStudent).ID)
	}
	env.Enroll(t, c1.ID, c1IDs...)
	s6 := env.CreateUser(t, "13800000016", "S", "16", user.TypeStudent)
	env.Enroll(t, c2.ID, s6.ID)

	t.Run("random", func(t *testing.T) {
		sem := env.CreateSeminar(t, crs.ID, "Random", false)
		env.CreateTopic(t, sem.ID, "Small", 0, 2)
		env.CreateTopic(t, sem.ID, "Unlimited", 0, 0)

		groups, err := env.GroupSvc.AutoGroup(ctx, sem.ID, teacher.ID)
		require.NoError(t, err)
		require.Len(t, groups, 4) // 2+2+1 in Class 1, 1 in Class 2

		var grouped []int64
		for _, grp := range groups {
			assert.NotZero(t, grp.ID)
			assert.Equal(t, sem.ID, grp.SeminarID)
			assert.LessOrEqual(t, len(grp.MemberIDs), 2)
			assert.True(t, grp.IsLeader(grp.MemberIDs[0]), "group %d is led by its first member", grp.ID)
			if grp.ClassID == c1.ID {
				grouped = append(grouped, grp.MemberIDs...)
			} else {
				assert.Equal(t, []int64{s6.ID}, grp.MemberIDs)
			}
		}
		sort.Slice(grouped, func(i, j int) bool { return grouped[i] < grouped[j] })
		assert.Equal(t, c1IDs, grouped)

		_, err = env.GroupSvc.AutoGroup(ctx, sem.ID, teacher.ID)
		assert.Equal(t, seminargroup.ErrAlreadyGrouped, errors.Cause(err))
	})

	t.Run("fixed", func(t *testing.T) {
		sem := env.CreateSeminar(t, crs.ID, "Fixed", true)
		env.CreateFixGroup(t, c1.ID, c1IDs[1], c1IDs[0], c1IDs[1])
		// withdrawn students are left out
		env.CreateFixGroup(t, c1.ID, 0, c1IDs[2], 999)

		groups, err := env.GroupSvc.AutoGroup(ctx, sem.ID, teacher.ID)
		require.NoError(t, err)
		require.Len(t, groups, 4)

		assert.Equal(t, c1IDs[1], groups[0].LeaderID)
		assert.Equal(t, []int64{c1IDs[0], c1IDs[1]}, groups[0].MemberIDs)
		assert.Zero(t, groups[1].LeaderID)
		assert.Equal(t, []int64{c1IDs[2]}, groups[1].MemberIDs)
		assert.Equal(t, []int64{c1IDs[3], c1IDs[4]}, groups[2].MemberIDs)
		assert.Equal(t, c2.ID, groups[3].ClassID)
		assert.Equal(t, []int64{s6.ID}, groups[3].MemberIDs)
	})

	t.Run("not the teacher", func(t *testing.T) {
		other := env.CreateUser(t, "13800000002", "Carol", "T002", user.TypeTeacher)
		sem := env.CreateSeminar(t, crs.ID, "Other", false)
		_, err := env.GroupSvc.AutoGroup(ctx, sem.ID, other.ID)
		assert.Equal(t, course.ErrNotCourseTeacher, errors.Cause(err))
	})
}

func TestService_ScorePresentation(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	cls := env.CreateClass(t, crs.ID, "Class 1")

	var ids []int64
	for _, phone := range []string{"13800000011", "13800000012", "13800000013", "13800000014", "13800000015"} {
		ids = append(ids, env.CreateUser(t, phone, "S", phone, user.TypeStudent).ID)
	}
	env.Enroll(t, cls.ID, ids...)

	sem := env.CreateSeminar(t, crs.ID, "Requirements", true)
	t1 := env.CreateTopic(t, sem.ID, "Use cases", 0, 0)
	t2 := env.CreateTopic(t, sem.ID, "Domain model", 0, 0)
	grp := env.CreateSeminarGroup(t, sem.ID, cls.ID, ids[0], ids[0], ids[1])
	env.SelectTopic(t, grp.ID, t1.ID)
	env.SelectTopic(t, grp.ID, t2.ID)

	score := func(studentID int64, scores ...seminargroup.TopicScore) seminargroup.SeminarGroup {
		t.Helper()
		scored, err := env.GroupSvc.ScorePresentation(ctx, grp.ID, studentID, scores)
		require.NoError(t, err)
		return scored
	}

	got := score(ids[2], seminargroup.TopicScore{TopicID: t1.ID, Grade: 4})
	require.NotNil(t, got.PresentationGrade)
	assert.Equal(t, 4.0, *got.PresentationGrade)
	assert.Nil(t, got.FinalGrade)

	score(ids[3],
		seminargroup.TopicScore{TopicID: t1.ID, Grade: 5},
		seminargroup.TopicScore{TopicID: t2.ID, Grade: 4},
	)
	score(ids[4],
		seminargroup.TopicScore{TopicID: t1.ID, Grade: 5},
		seminargroup.TopicScore{TopicID: t2.ID, Grade: 5},
	)
	got = score(ids[2], seminargroup.TopicScore{TopicID: t2.ID, Grade: 4})
	// Use cases: 14/3 -> 4.67, Domain model: 13/3 -> 4.33
	require.NotNil(t, got.PresentationGrade)
	assert.Equal(t, 4.5, *got.PresentationGrade)

	got, err := env.GroupSvc.SetReportGrade(ctx, grp.ID, teacher.ID, 3.996)
	require.NoError(t, err)
	require.NotNil(t, got.ReportGrade)
	assert.Equal(t, 4.0, *got.ReportGrade)
	require.NotNil(t, got.FinalGrade)
	assert.Equal(t, 4.25, *got.FinalGrade)

	gts, err := env.GroupSvc.QueryTopics(ctx, grp.ID)
	require.NoError(t, err)
	require.Len(t, gts, 2)
	require.NotNil(t, gts[0].PresentationGrade)
	assert.Equal(t, 4.67, *gts[0].PresentationGrade)
	require.NotNil(t, gts[1].PresentationGrade)
	assert.Equal(t, 4.33, *gts[1].PresentationGrade)

	_, err = env.GroupSvc.ScorePresentation(ctx, grp.ID, ids[1], []seminargroup.TopicScore{{TopicID: t1.ID, Grade: 1}})
	assert.Equal(t, seminargroup.ErrOwnGroup, errors.Cause(err))
}

func TestService_SelectTopicLimit(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	c1 := env.CreateClass(t, crs.ID, "Class 1")
	c2 := env.CreateClass(t, crs.ID, "Class 2")
	sem := env.CreateSeminar(t, crs.ID, "Requirements", false)
	tpc := env.CreateTopic(t, sem.ID, "Use cases", 1, 0)

	var groups []seminargroup.SeminarGroup
	for _, phone := range []string{"13800000011", "13800000012", "13800000013"} {
		s := env.CreateUser(t, phone, "S", phone, user.TypeStudent).ID
		env.Enroll(t, c1.ID, s)
		groups = append(groups, env.CreateSeminarGroup(t, sem.ID, c1.ID, s, s))
	}
	s4 := env.CreateUser(t, "13800000014", "S", "14", user.TypeStudent).ID
	env.Enroll(t, c2.ID, s4)
	g4 := env.CreateSeminarGroup(t, sem.ID, c2.ID, s4, s4)

	var wg sync.WaitGroup
	errs := make([]error, len(groups))
	for i, grp := range groups {
		wg.Add(1)
		go func(i int, grp seminargroup.SeminarGroup) {
			defer wg.Done()
			_, errs[i] = env.GroupSvc.SelectTopic(ctx, grp.ID, grp.LeaderID, tpc.ID)
		}(i, grp)
	}
	wg.Wait()

	var selected int
	var rejected seminargroup.SeminarGroup
	for i, err := range errs {
		if err == nil {
			selected++
			continue
		}
		assert.Equal(t, seminargroup.ErrTopicFull, errors.Cause(err))
		rejected = groups[i]
	}
	assert.Equal(t, 1, selected, "concurrent selections must not exceed the limit")

	count, err := env.GroupSvc.CountTopicGroups(ctx, tpc.ID, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = env.GroupSvc.SelectTopic(ctx, g4.ID, s4, tpc.ID)
	assert.NoError(t, err, "the limit applies per class")

	_, err = env.GroupRepo.CreateGroupTopic(ctx, seminargroup.GroupTopic{GroupID: rejected.ID, TopicID: tpc.ID}, 0)
	require.NoError(t, err)
	count, err = env.GroupSvc.CountTopicGroups(ctx, tpc.ID, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a zero limit means no limit")
}
