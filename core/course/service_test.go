package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/tests"
)

func TestNewCourse_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	start := time.Date(2021, 2, 22, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		nc      course.NewCourse
		wantErr bool
		wantPct int
	}{
		{name: "default proportions", nc: course.NewCourse{Name: "OOSE", StartTime: start, EndTime: start.AddDate(0, 3, 0)}, wantPct: 50},
		{
			name: "custom proportions",
			nc: course.NewCourse{
				Name:        "OOSE",
				StartTime:   start,
				EndTime:     start.AddDate(0, 3, 0),
				Proportions: &course.Proportions{Report: 30, Presentation: 70},
			},
			wantPct: 30,
		},
		{
			name: "proportions not summing up to 100",
			nc: course.NewCourse{
				Name:        "OOSE",
				StartTime:   start,
				EndTime:     start.AddDate(0, 3, 0),
				Proportions: &course.Proportions{Report: 30, Presentation: 30},
			},
			wantErr: true,
		},
		{name: "ends before it starts", nc: course.NewCourse{Name: "OOSE", StartTime: start, EndTime: start.AddDate(0, -1, 0)}, wantErr: true},
		{name: "blank name", nc: course.NewCourse{Name: "   ", StartTime: start, EndTime: start.AddDate(0, 3, 0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.nc.Proportions.Report != tt.wantPct {
				t.Errorf("Validate() report proportion = %d; want %d", tt.nc.Proportions.Report, tt.wantPct)
			}
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	other := env.CreateUser(t, "13800000002", "Carol", "T002", user.TypeTeacher)
	s1 := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent)
	svc := env.CourseSvc

	start := time.Date(2021, 2, 22, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))
	crs, err := svc.Create(ctx, teacher.ID, course.NewCourse{
		Name:        "OOSE",
		StartTime:   start,
		EndTime:     start.AddDate(0, 3, 0),
		Proportions: &course.Proportions{Report: 40, Presentation: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, crs.StartDate.Location())
	assert.Equal(t, 40, crs.ReportPercentage)

	_, err = svc.GetOwned(ctx, crs.ID, other.ID)
	assert.Equal(t, course.ErrNotCourseTeacher, errors.Cause(err))
	_, err = svc.CreateClass(ctx, crs.ID, other.ID, course.NewClass{Name: "Class 1"})
	assert.Equal(t, course.ErrNotCourseTeacher, errors.Cause(err))

	cls, err := svc.CreateClass(ctx, crs.ID, teacher.ID, course.NewClass{Name: "Class 1"})
	require.NoError(t, err)

	require.NoError(t, svc.Enroll(ctx, cls.ID, s1.ID))
	assert.Equal(t, course.ErrAlreadyEnrolled, errors.Cause(svc.Enroll(ctx, cls.ID, s1.ID)))
	assert.Equal(t, course.ErrClassNotFound, errors.Cause(svc.Enroll(ctx, 999, s1.ID)))

	sums, err := svc.QueryByStudent(ctx, s1.ID)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 1, sums[0].NumClass)
	assert.Equal(t, 1, sums[0].NumStudent)

	require.NoError(t, svc.Withdraw(ctx, cls.ID, s1.ID))
	assert.Equal(t, course.ErrNotEnrolled, errors.Cause(svc.Withdraw(ctx, cls.ID, s1.ID)))

	assert.Equal(t, course.ErrNotCourseTeacher, errors.Cause(svc.Delete(ctx, crs.ID, other.ID)))
	require.NoError(t, svc.Delete(ctx, crs.ID, teacher.ID))
	_, err = svc.GetClass(ctx, cls.ID)
	assert.Equal(t, course.ErrClassNotFound, errors.Cause(err), "classes go with their course")
}

func TestService_WithdrawLeavesFixGroup(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	c1 := env.CreateClass(t, crs.ID, "Class 1")
	c2 := env.CreateClass(t, crs.ID, "Class 2")
	s1 := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent).ID
	s2 := env.CreateUser(t, "13800000012", "Dan", "S002", user.TypeStudent).ID
	env.Enroll(t, c1.ID, s1, s2)
	env.Enroll(t, c2.ID, s1)
	grp := env.CreateFixGroup(t, c1.ID, s1, s1, s2)
	other := env.CreateFixGroup(t, c2.ID, s1, s1)
	svc := env.CourseSvc

	require.NoError(t, svc.Withdraw(ctx, c1.ID, s2))
	_, err := env.FixGroupSvc.GetByStudent(ctx, c1.ID, s2)
	assert.Equal(t, fixgroup.ErrNotFound, errors.Cause(err))
	got, err := env.FixGroupSvc.GetByStudent(ctx, c1.ID, s1)
	require.NoError(t, err)
	assert.Equal(t, grp.ID, got.ID)
	assert.Equal(t, []int64{s1}, got.MemberIDs)
	assert.Equal(t, s1, got.LeaderID)

	t.Run("leader withdrawing empties and deletes the group", func(t *testing.T) {
		require.NoError(t, svc.Withdraw(ctx, c1.ID, s1))
		groups, err := env.FixGroupSvc.QueryByClass(ctx, c1.ID)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("groups of other classes are kept", func(t *testing.T) {
		got, err := env.FixGroupSvc.GetByStudent(ctx, c2.ID, s1)
		require.NoError(t, err)
		assert.Equal(t, other.ID, got.ID)
		assert.Equal(t, s1, got.LeaderID)
	})

	t.Run("leader withdrawing clears the leader", func(t *testing.T) {
		s3 := env.CreateUser(t, "13800000013", "Fay", "S003", user.TypeStudent).ID
		env.Enroll(t, c2.ID, s3)
		_, err := env.FixGroupSvc.AddMember(ctx, c2.ID, s1, s3)
		require.NoError(t, err)

		require.NoError(t, svc.Withdraw(ctx, c2.ID, s1))
		got, err := env.FixGroupSvc.GetByStudent(ctx, c2.ID, s3)
		require.NoError(t, err)
		assert.False(t, got.HasLeader())
		assert.Equal(t, []int64{s3}, got.MemberIDs)
	})
}
