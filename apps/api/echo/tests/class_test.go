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

func brief(usr user.User) UserBriefResponse {
	return UserBriefResponse{ID: usr.ID, Name: usr.Name, Number: usr.Number}
}

func Test_classApi_query(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	other := env.CreateUser(t, "13800000002", "Carol", "T002", user.TypeTeacher)
	student := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent)
	unbound := env.CreateUser(t, "13800000021", "Eve", "", user.TypeUnbound)

	oose := env.CreateCourse(t, teacher.ID, "OOSE")
	ds := env.CreateCourse(t, other.ID, "Data Structures")
	c1 := env.CreateClass(t, oose.ID, "Class 1")
	c2 := env.CreateClass(t, oose.ID, "Class 2")
	c3 := env.CreateClass(t, ds.ID, "Class 1")
	env.Enroll(t, c1.ID, student.ID)
	env.Enroll(t, c3.ID, student.ID)

	summary := func(id int64, name string, courseID int64, courseName string) ClassSummaryResponse {
		return ClassSummaryResponse{ID: id, Name: name, Site: "Hai Yun 3-201", CourseID: courseID, CourseName: courseName}
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "student", path: "/class", token: getToken(t, env, student),
			wantData: marchallList(t, summary(c1.ID, "Class 1", oose.ID, "OOSE"), summary(c3.ID, "Class 1", ds.ID, "Data Structures")),
		},
		{
			name: "teacher", path: "/class", token: getToken(t, env, teacher),
			wantData: marchallList(t, summary(c1.ID, "Class 1", oose.ID, "OOSE"), summary(c2.ID, "Class 2", oose.ID, "OOSE")),
		},
		{
			name: "unbound", path: "/class", token: getToken(t, env, unbound),
			wantData: marchallList(t),
		},
	})
}

func Test_classApi_detail(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	other := env.CreateUser(t, "13800000002", "Carol", "T002", user.TypeTeacher)
	student := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent)
	tToken, oToken, sToken := getToken(t, env, teacher), getToken(t, env, other), getToken(t, env, student)

	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	cls := env.CreateClass(t, crs.ID, "Class 1")

	runHTTPTests(t, srv, []httpTest{
		{
			name: "create: student", method: http.MethodPost, path: "/class", token: sToken,
			body:     []byte(`{"name": "Class 2", "course": {"id": 1}}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create: missing course", method: http.MethodPost, path: "/class", token: tToken,
			body:     []byte(`{"name": "Class 2"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"course": thisFieldIsReq}),
		},
		{
			name: "create: unknown course", method: http.MethodPost, path: "/class", token: tToken,
			body:     []byte(`{"name": "Class 2", "course": {"id": 999}}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "create: not owner", method: http.MethodPost, path: "/class", token: oToken,
			body:     []byte(`{"name": "Class 2", "course": {"id": 1}}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only the teacher of this course can do this"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/class", token: tToken,
			body:     []byte(`{"name": "Class 2", "site": "Hai Yun 3-202", "time": "Tue 10:00", "course": {"id": 1}}`),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, ClassResponse{ID: cls.ID + 1, Name: "Class 2", Site: "Hai Yun 3-202", Time: "Tue 10:00", CourseID: crs.ID}),
			extra:    location(path("/class/%d", cls.ID+1)),
		},
		{
			name: "retrieve", path: path("/class/%d", cls.ID), token: sToken,
			wantData: marchallObj(t, ClassResponse{ID: cls.ID, Name: "Class 1", Site: "Hai Yun 3-201", Time: "Mon 08:00", CourseID: crs.ID}),
		},
		{
			name: "retrieve: unknown", path: "/class/999", token: sToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "update: not owner", method: http.MethodPut, path: path("/class/%d", cls.ID), token: oToken,
			body:     []byte(`{"site": "Hai Yun 3-301"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "only the teacher of this course can do this"}),
		},
		{
			name: "update", method: http.MethodPut, path: path("/class/%d", cls.ID), token: tToken,
			body:     []byte(`{"site": " Hai Yun 3-301 "}`),
			wantCode: http.StatusNoContent,
		},
		{
			name: "retrieve: updated", path: path("/class/%d", cls.ID), token: sToken,
			wantData: marchallObj(t, ClassResponse{ID: cls.ID, Name: "Class 1", Site: "Hai Yun 3-301", Time: "Mon 08:00", CourseID: crs.ID}),
		},
		{
			name: "delete: student", method: http.MethodDelete, path: path("/class/%d", cls.ID), token: sToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "delete", method: http.MethodDelete, path: path("/class/%d", cls.ID), token: tToken,
			wantCode: http.StatusNoContent,
		},
		{
			name: "retrieve: deleted", path: path("/class/%d", cls.ID), token: sToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
	})
}

func Test_classApi_students(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	s1 := env.CreateUser(t, "13800000011", "Bob", "24320182203001", user.TypeStudent)
	s2 := env.CreateUser(t, "13800000012", "Dan", "24320182203002", user.TypeStudent)
	s3 := env.CreateUser(t, "13800000013", "Ben", "24320192203003", user.TypeStudent)
	outsider := env.CreateUser(t, "13800000014", "Fay", "24320192203004", user.TypeStudent)
	s1Token, tToken := getToken(t, env, s1), getToken(t, env, teacher)

	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	cls := env.CreateClass(t, crs.ID, "Class 1")
	env.Enroll(t, cls.ID, s2.ID, s3.ID)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "enroll: teacher", method: http.MethodPost, path: path("/class/%d/student", cls.ID), token: tToken,
			body:     marchallObj(t, map[string]int64{"id": teacher.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "enroll: someone else", method: http.MethodPost, path: path("/class/%d/student", cls.ID), token: s1Token,
			body:     marchallObj(t, map[string]int64{"id": outsider.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students can only act on their own behalf"}),
		},
		{
			name: "enroll: unknown class", method: http.MethodPost, path: "/class/999/student", token: s1Token,
			body:     marchallObj(t, map[string]int64{"id": s1.ID}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "enroll", method: http.MethodPost, path: path("/class/%d/student", cls.ID), token: s1Token,
			body:     marchallObj(t, map[string]int64{"id": s1.ID}),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, map[string]string{"url": path("/class/%d/student/%d", cls.ID, s1.ID)}),
			extra:    location(path("/class/%d/student/%d", cls.ID, s1.ID)),
		},
		{
			name: "enroll: twice", method: http.MethodPost, path: path("/class/%d/student", cls.ID), token: s1Token,
			body:     marchallObj(t, map[string]int64{"id": s1.ID}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "student is already enrolled in this class"}),
		},
		{
			name: "list", path: path("/class/%d/student", cls.ID), token: tToken,
			wantData: marchallList(t, brief(s1), brief(s2), brief(s3)),
		},
		{
			name: "list: by number prefix", path: path("/class/%d/student?numBeginWith=243201822", cls.ID), token: tToken,
			wantData: marchallList(t, brief(s1), brief(s2)),
		},
		{
			name: "list: by name prefix", path: path("/class/%d/student?nameBeginWith=B", cls.ID), token: tToken,
			wantData: marchallList(t, brief(s1), brief(s3)),
		},
		{
			name: "withdraw: someone else", method: http.MethodDelete, path: path("/class/%d/student/%d", cls.ID, s2.ID), token: s1Token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students can only act on their own behalf"}),
		},
		{
			name: "withdraw", method: http.MethodDelete, path: path("/class/%d/student/%d", cls.ID, s1.ID), token: s1Token,
			wantCode: http.StatusNoContent,
		},
		{
			name: "withdraw: not enrolled", method: http.MethodDelete, path: path("/class/%d/student/%d", cls.ID, s1.ID), token: s1Token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student is not enrolled in this class"}),
		},
	})

	t.Run("list: ordering", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path("/class/%d/student?ordering=-number", cls.ID), tToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, string(marchallList(t, brief(s3), brief(s2))), rec.Body.String())
	})
}

func Test_classApi_fixGroup(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	s1 := env.CreateUser(t, "13800000011", "Bob", "S001", user.TypeStudent)
	s2 := env.CreateUser(t, "13800000012", "Dan", "S002", user.TypeStudent)
	s3 := env.CreateUser(t, "13800000013", "Fay", "S003", user.TypeStudent)
	outsider := env.CreateUser(t, "13800000014", "Gus", "S004", user.TypeStudent)
	t1, t2, t3 := getToken(t, env, s1), getToken(t, env, s2), getToken(t, env, s3)

	crs := env.CreateCourse(t, teacher.ID, "OOSE")
	cls := env.CreateClass(t, crs.ID, "Class 1")
	env.Enroll(t, cls.ID, s1.ID, s2.ID, s3.ID)

	groupPath := path("/class/%d/classgroup", cls.ID)
	ref := func(usr user.User) []byte { return marchallObj(t, map[string]int64{"id": usr.ID}) }
	leader := brief(s1)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "retrieve: teacher", path: groupPath, token: getToken(t, env, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "retrieve: no group", path: groupPath, token: t1,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "fixed group not found"}),
		},
		{
			name: "add: outsider", method: http.MethodPut, path: groupPath + "/add", token: t1, body: ref(outsider),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student is not enrolled in this class"}),
		},
		{
			name: "add", method: http.MethodPut, path: groupPath + "/add", token: t1, body: ref(s2),
			wantCode: http.StatusNoContent,
		},
		{
			name: "add: already grouped", method: http.MethodPut, path: groupPath + "/add", token: t3, body: ref(s2),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "student is already in a fixed group of this class"}),
		},
		{
			name: "assign: someone else", method: http.MethodPut, path: groupPath + "/assign", token: t1, body: ref(s2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students can only act on their own behalf"}),
		},
		{
			name: "assign", method: http.MethodPut, path: groupPath + "/assign", token: t1, body: ref(s1),
			wantCode: http.StatusNoContent,
		},
		{
			name: "assign: has leader", method: http.MethodPut, path: groupPath + "/assign", token: t2, body: ref(s2),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "this group already has a leader"}),
		},
		{
			name: "retrieve", path: groupPath, token: t2,
			wantData: marchallObj(t, FixGroupResponse{Leader: &leader, Members: []UserBriefResponse{brief(s1), brief(s2)}}),
		},
		{
			name: "remove: not leader", method: http.MethodPut, path: groupPath + "/remove", token: t2, body: ref(s1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only the group leader can do this"}),
		},
		{
			name: "resign: not leader", method: http.MethodPut, path: groupPath + "/resign", token: t2, body: ref(s2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only the group leader can do this"}),
		},
		{
			name: "remove", method: http.MethodPut, path: groupPath + "/remove", token: t1, body: ref(s2),
			wantCode: http.StatusNoContent,
		},
		{
			name: "retrieve: removed", path: groupPath, token: t2,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "fixed group not found"}),
		},
		{
			name: "resign", method: http.MethodPut, path: groupPath + "/resign", token: t1, body: ref(s1),
			wantCode: http.StatusNoContent,
		},
		{
			name: "retrieve: leaderless", path: groupPath, token: t1,
			wantData: marchallObj(t, FixGroupResponse{Members: []UserBriefResponse{brief(s1)}}),
		},
	})

	grp, err := env.FixGroupSvc.GetByStudent(context.Background(), cls.ID, s1.ID)
	require.NoError(t, err)
	assert.False(t, grp.HasLeader())
	assert.Equal(t, []int64{s1.ID}, grp.MemberIDs)
}
