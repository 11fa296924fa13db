package tests

import (
	"net/http"
	"testing"

	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/user"
)

func Test_schoolApi(t *testing.T) {
	env, srv := setup(t)
	teacher := env.CreateUser(t, "13800000001", "Alice", "T001", user.TypeTeacher)
	student := env.CreateUser(t, "13800000002", "Bob", "S001", user.TypeStudent)
	tToken, sToken := getToken(t, env, teacher), getToken(t, env, student)

	xmu := env.CreateSchool(t, "Xiamen University", "Fujian", "Xiamen")
	fzu := env.CreateSchool(t, "Fuzhou University", "Fujian", "Fuzhou")
	pku := env.CreateSchool(t, "Peking University", "Beijing", "Beijing")

	runHTTPTests(t, srv, []httpTest{
		{
			name: "query: no token", path: "/school",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "query: all", path: "/school", token: sToken,
			wantData: marchallList(t, fzu, pku, xmu),
		},
		{
			name: "query: by province", path: "/school?province=Fujian", token: sToken,
			wantData: marchallList(t, fzu, xmu),
		},
		{
			name: "query: by city", path: "/school?city=Beijing", token: sToken,
			wantData: marchallList(t, pku),
		},
		{
			name: "query: no match", path: "/school?province=Fujian&city=Beijing", token: sToken,
			wantData: marchallList(t),
		},
		{
			name: "provinces", path: "/school/province", token: sToken,
			wantData: marchallObj(t, []string{"Beijing", "Fujian"}),
		},
		{
			name: "cities", path: "/school/city?province=Fujian", token: sToken,
			wantData: marchallObj(t, []string{"Fuzhou", "Xiamen"}),
		},
		{
			name: "retrieve", path: path("/school/%d", xmu.ID), token: sToken,
			wantData: marchallObj(t, map[string]string{"name": "Xiamen University", "province": "Fujian", "city": "Xiamen"}),
		},
		{
			name: "retrieve: unknown", path: "/school/999", token: sToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "school not found"}),
		},
		{
			name: "retrieve: bad ID", path: "/school/abc", token: sToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: `invalid id: "abc"`}),
		},
		{
			name: "create: student", method: http.MethodPost, path: "/school", token: sToken,
			body:     []byte(`{"name": "Jimei University", "province": "Fujian", "city": "Xiamen"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create: missing fields", method: http.MethodPost, path: "/school", token: tToken,
			body:     []byte(`{"name": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": thisFieldIsReq, "province": thisFieldIsReq, "city": thisFieldIsReq}),
		},
		{
			name: "create: duplicate", method: http.MethodPost, path: "/school", token: tToken,
			body:     []byte(`{"name": "Xiamen University", "province": "Fujian", "city": "Xiamen"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "this school is already registered"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/school", token: tToken,
			body:     []byte(`{"name": " Jimei University ", "province": "Fujian", "city": "Xiamen"}`),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, school.School{ID: pku.ID + 1, Name: "Jimei University", Province: "Fujian", City: "Xiamen"}),
			extra:    location(path("/school/%d", pku.ID+1)),
		},
	})
}
