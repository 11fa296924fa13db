package seminargroup

import (
	"reflect"
	"testing"

	"github.com/xmu-se/crms/core/seminar"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		want *float64
	}{
		{name: "no values"},
		{name: "single", vals: []float64{4}, want: ptr(4)},
		{name: "rounded", vals: []float64{4, 5, 5}, want: ptr(4.67)},
		{name: "rounded down", vals: []float64{1, 1, 2}, want: ptr(1.33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mean(tt.vals)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mean() = %v; want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func TestFinalGrade(t *testing.T) {
	tests := []struct {
		name                       string
		presentation, report       *float64
		presentationPct, reportPct int
		want                       *float64
	}{
		{name: "not graded", presentationPct: 50, reportPct: 50},
		{name: "presentation only", presentation: ptr(4), presentationPct: 50, reportPct: 50},
		{name: "report only", report: ptr(4), presentationPct: 50, reportPct: 50},
		{name: "even", presentation: ptr(4.5), report: ptr(4), presentationPct: 50, reportPct: 50, want: ptr(4.25)},
		{name: "weighed", presentation: ptr(5), report: ptr(3), presentationPct: 70, reportPct: 30, want: ptr(4.4)},
		{name: "rounded", presentation: ptr(4.67), report: ptr(3.33), presentationPct: 35, reportPct: 65, want: ptr(3.8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finalGrade(tt.presentation, tt.report, tt.presentationPct, tt.reportPct)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("finalGrade() = %v; want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func TestPlanRandomGroups(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}
	svc := &Service{shuffle: reverse}
	sem := seminar.Seminar{ID: 7}

	tests := []struct {
		name       string
		studentIDs []int64
		size       int
		want       []SeminarGroup
	}{
		{name: "no students", size: 3, want: []SeminarGroup{}},
		{
			name: "even", studentIDs: []int64{1, 2, 3, 4}, size: 2,
			want: []SeminarGroup{
				{SeminarID: 7, ClassID: 3, LeaderID: 4, MemberIDs: []int64{4, 3}},
				{SeminarID: 7, ClassID: 3, LeaderID: 2, MemberIDs: []int64{2, 1}},
			},
		},
		{
			name: "remainder", studentIDs: []int64{1, 2, 3, 4, 5}, size: 3,
			want: []SeminarGroup{
				{SeminarID: 7, ClassID: 3, LeaderID: 5, MemberIDs: []int64{5, 4, 3}},
				{SeminarID: 7, ClassID: 3, LeaderID: 2, MemberIDs: []int64{2, 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.planRandomGroups(sem, 3, tt.studentIDs, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("planRandomGroups() = %+v; want %+v", got, tt.want)
			}
		})
	}

	t.Run("input left untouched", func(t *testing.T) {
		ids := []int64{1, 2, 3}
		svc.planRandomGroups(sem, 3, ids, 2)
		if !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
			t.Errorf("planRandomGroups() shuffled its input: %v", ids)
		}
	})
}

func ptr(f float64) *float64 { return &f }

func deref(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
