package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/xmu-se/crms/apps/api/echo"
	"github.com/xmu-se/crms/core/user"
)

func floatPtr(f float64) *float64 { return &f }

func Test_groupApi(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	other := env.CreateUser(t, "13800000002", "Carol", "T002", user.TypeTeacher)
	s1 := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent)
	s2 := env.CreateUser(t, "13800000012", "Dan", "S002", user.TypeStudent)
	s3 := env.CreateUser(t, "13800000013", "Fay", "S003", user.TypeStudent)
	s4 := env.CreateUser(t, "13800000014", "Gus", "S004", user.TypeStudent)
	outsider := env.CreateUser(t, "13800000015", "Ian", "S005", user.TypeStudent)
	tToken, oToken := getToken(t, env, teacher), getToken(t, env, other)
	t1, t2, t3, t4 := getToken(t, env, s1), getToken(t, env, s2), getToken(t, env, s3), getToken(t, env, s4)

	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	c1 := env.CreateClass(t, crs.ID, "Class 1")
	c2 := env.CreateClass(t, crs.ID, "Class 2")
	env.Enroll(t, c1.ID, s1.ID, s2.ID, s3.ID, s4.ID)
	env.Enroll(t, c2.ID, outsider.ID)

	sem := env.CreateSeminar(t, crs.ID, "Requirements", true)
	useCases := env.CreateTopic(t, sem.ID, "Use cases", 1, 3)
	domain := env.CreateTopic(t, sem.ID, "Domain model", 0, 0)
	solo := env.CreateTopic(t, sem.ID, "Solo talk", 0, 1)
	foreign := env.CreateTopic(t, env.CreateSeminar(t, crs.ID, "Design", false).ID, "Patterns", 0, 0)

	g1 := env.CreateSeminarGroup(t, sem.ID, c1.ID, s1.ID, s1.ID, s2.ID)
	g2 := env.CreateSeminarGroup(t, sem.ID, c1.ID, s3.ID, s3.ID, s4.ID)

	g1Path := path("/group/%d", g1.ID)
	leader := brief(s1)
	topicRef := func(id int64) []byte { return marchallObj(t, map[string]int64{"id": id}) }
	scores := func(topicID int64, grade int) []byte {
		return marchallObj(t, map[string]interface{}{
			"presentationGrade": []map[string]int64{{"topicId": topicID, "grade": int64(grade)}},
		})
	}
	notLeader := httpErr{Error: "only the group leader can do this"}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "retrieve: no token", path: g1Path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "retrieve", path: g1Path, token: t3,
			wantData: marchallObj(t, SeminarGroupResponse{
				ID:        g1.ID,
				SeminarID: sem.ID,
				ClassID:   c1.ID,
				Leader:    &leader,
				Members:   []UserBriefResponse{brief(s2)},
				Topics:    []TopicBriefResponse{},
			}),
		},
		{
			name: "retrieve: unknown", path: "/group/999", token: t1,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "seminar group not found"}),
		},

		// report
		{
			name: "report: not a member", method: http.MethodPut, path: g1Path, token: t3,
			body:     []byte(`{"report": "https://example.com/report.pdf"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only members of this group can do this"}),
		},
		{
			name: "report: other teacher", method: http.MethodPut, path: g1Path, token: oToken,
			body:     []byte(`{"report": "https://example.com/report.pdf"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only members of this group can do this"}),
		},
		{
			name: "report: member", method: http.MethodPut, path: g1Path, token: t2,
			body:     []byte(`{"report": " https://example.com/report.pdf "}`),
			wantCode: http.StatusNoContent,
		},
		{
			name: "report: teacher", method: http.MethodPut, path: path("/group/%d", g2.ID), token: tToken,
			body:     []byte(`{"report": "https://example.com/g2.pdf"}`),
			wantCode: http.StatusNoContent,
		},

		// topic selection
		{
			name: "select: teacher", method: http.MethodPost, path: g1Path + "/topic", token: tToken, body: topicRef(useCases.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "select: not leader", method: http.MethodPost, path: g1Path + "/topic", token: t2, body: topicRef(useCases.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, notLeader),
		},
		{
			name: "select: missing topic", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"id": thisFieldIsReq}),
		},
		{
			name: "select: unknown topic", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(999),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "topic not found"}),
		},
		{
			name: "select: topic of another seminar", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(foreign.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "topic does not belong to the seminar of this group"}),
		},
		{
			name: "select: group too large", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(solo.ID),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "group has more members than this topic allows"}),
		},
		{
			name: "select", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(useCases.ID),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, map[string]string{"url": path("/group/%d/topic/%d", g1.ID, useCases.ID)}),
			extra:    location(path("/group/%d/topic/%d", g1.ID, useCases.ID)),
		},
		{
			name: "select: twice", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(useCases.ID),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "topic already selected by this group"}),
		},
		{
			name: "select: topic full", method: http.MethodPost, path: path("/group/%d/topic", g2.ID), token: t3, body: topicRef(useCases.ID),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "topic has reached its group limit"}),
		},
		{
			name: "select: another", method: http.MethodPost, path: g1Path + "/topic", token: t1, body: topicRef(domain.ID),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, map[string]string{"url": path("/group/%d/topic/%d", g1.ID, domain.ID)}),
			extra:    location(path("/group/%d/topic/%d", g1.ID, domain.ID)),
		},
		{
			name: "deselect: not leader", method: http.MethodDelete, path: path("/group/%d/topic/%d", g1.ID, domain.ID), token: t2,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, notLeader),
		},
		{
			name: "deselect", method: http.MethodDelete, path: path("/group/%d/topic/%d", g1.ID, domain.ID), token: t1,
			wantCode: http.StatusNoContent,
		},
		{
			name: "deselect: not selected", method: http.MethodDelete, path: path("/group/%d/topic/%d", g1.ID, domain.ID), token: t1,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "topic not selected by this group"}),
		},

		// grading
		{
			name: "report grade: student", method: http.MethodPut, path: g1Path + "/grade/report", token: t3,
			body:     []byte(`{"reportGrade": 4}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "report grade: missing", method: http.MethodPut, path: g1Path + "/grade/report", token: tToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"reportGrade": thisFieldIsReq}),
		},
		{
			name: "report grade: other teacher", method: http.MethodPut, path: g1Path + "/grade/report", token: oToken,
			body:     []byte(`{"reportGrade": 4}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only the teacher of this course can do this"}),
		},
		{
			name: "report grade", method: http.MethodPut, path: g1Path + "/grade/report", token: tToken,
			body:     []byte(`{"reportGrade": 4}`),
			wantCode: http.StatusNoContent,
		},
		{
			name: "score: on behalf of another", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s4.ID), token: t3, body: scores(useCases.ID, 4),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students can only act on their own behalf"}),
		},
		{
			name: "score: own group", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s2.ID), token: t2, body: scores(useCases.ID, 5),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students cannot grade their own group"}),
		},
		{
			name: "score: other class", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, outsider.ID), token: getToken(t, env, outsider), body: scores(useCases.ID, 5),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only students of this class can grade this group"}),
		},
		{
			name: "score: topic not presented", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s3.ID), token: t3, body: scores(domain.ID, 5),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "topic " + itoa(domain.ID) + " was not presented by this group"}),
		},
		{
			name: "score", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s3.ID), token: t3, body: scores(useCases.ID, 4),
			wantCode: http.StatusNoContent,
		},
		{
			name: "score: another student", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s4.ID), token: t4, body: scores(useCases.ID, 5),
			wantCode: http.StatusNoContent,
		},
		{
			name: "grade", path: g1Path + "/grade", token: t1,
			wantData: marchallObj(t, GroupGradeResponse{
				PresentationGrade: []TopicGradeResponse{{TopicID: useCases.ID, TopicName: "Use cases", Grade: floatPtr(4.5)}},
				ReportGrade:       floatPtr(4),
				FinalGrade:        floatPtr(4.25),
			}),
		},
		{
			name: "score: rescore", method: http.MethodPut,
			path: path("/group/%d/grade/presentation/%d", g1.ID, s4.ID), token: t4, body: scores(useCases.ID, 3),
			wantCode: http.StatusNoContent,
		},
		{
			name: "grade: rescored", path: g1Path + "/grade", token: tToken,
			wantData: marchallObj(t, GroupGradeResponse{
				PresentationGrade: []TopicGradeResponse{{TopicID: useCases.ID, TopicName: "Use cases", Grade: floatPtr(3.5)}},
				ReportGrade:       floatPtr(4),
				FinalGrade:        floatPtr(3.75),
			}),
		},
	})

	grp, err := env.GroupSvc.GetByID(context.Background(), g1.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/report.pdf", grp.Report)
	require.NotNil(t, grp.PresentationGrade)
	assert.Equal(t, 3.5, *grp.PresentationGrade)

	t.Run("deselect: grades recomputed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path("/group/%d/topic/%d", g1.ID, useCases.ID), t1)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		grp, err := env.GroupSvc.GetByID(context.Background(), g1.ID)
		require.NoError(t, err)
		assert.Nil(t, grp.PresentationGrade)
		assert.Nil(t, grp.FinalGrade)
		require.NotNil(t, grp.ReportGrade)
		assert.Equal(t, 4.0, *grp.ReportGrade)
	})
}
