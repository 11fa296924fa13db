package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/user"
)

var (
	errNotSelf       = echo.NewHTTPError(http.StatusForbidden, "students can only act on their own behalf")
	errCourseMissing = core.NewValidationError(nil, core.FieldError{Field: "course", Error: "this field is required"})
)

type classApi struct {
	svc         course.ServiceInterface
	userSvc     user.ServiceInterface
	fixgroupSvc fixgroup.ServiceInterface
	validate    *validator.Validate
}

func registerClassAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:         deps.CourseSvc,
		userSvc:     deps.UserSvc,
		fixgroupSvc: deps.FixGroupSvc,
		validate:    deps.Validate,
	}

	cg := app.Group("/class", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, teacherOnly)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, teacherOnly)
	cg.DELETE("/:id", api.destroy, teacherOnly)

	// students
	cg.GET("/:id/student", api.queryStudents)
	cg.POST("/:id/student", api.enroll, studentOnly)
	cg.DELETE("/:id/student/:studentId", api.withdraw, studentOnly)

	// fixed group
	gg := cg.Group("/:id/classgroup", studentOnly)
	gg.GET("", api.retrieveGroup)
	gg.PUT("/resign", api.resignLeader)
	gg.PUT("/assign", api.assignLeader)
	gg.PUT("/add", api.addMember)
	gg.PUT("/remove", api.removeMember)
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	uid, err := claims.UserID()
	if err != nil {
		return err
	}

	var classes []course.Class
	switch claims.Type {
	case user.TypeStudent:
		classes, err = api.svc.QueryClassesByStudent(ctx.Request().Context(), uid)
	case user.TypeTeacher:
		classes, err = api.svc.QueryClassesByTeacher(ctx.Request().Context(), uid)
	}
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}

	courseNames := make(map[int64]string)
	resp := make([]ClassSummaryResponse, 0, len(classes))
	for _, cls := range classes {
		name, ok := courseNames[cls.CourseID]
		if !ok {
			crs, err := api.svc.GetByID(ctx.Request().Context(), cls.CourseID)
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			name = crs.Name
			courseNames[cls.CourseID] = name
		}
		resp = append(resp, ClassSummaryResponse{
			ID:         cls.ID,
			Name:       cls.Name,
			Site:       cls.Site,
			CourseID:   cls.CourseID,
			CourseName: name,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *classApi) create(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	var data course.NewClass
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if data.Course == nil {
		return errCourseMissing
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data.Course.ID, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return created(ctx, fmt.Sprintf("/class/%d", cls.ID), newClassResponse(cls))
}

func (api *classApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, newClassResponse(cls))
}

func (api *classApi) update(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	cls, err := api.svc.GetOwnedClass(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "finding owned class")
	}

	var data course.UpdateClass
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(cls, api.validate); err != nil {
		return err
	}

	if _, err := api.svc.UpdateClass(ctx.Request().Context(), cls, data); err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) destroy(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), id, uid); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ids, err := api.svc.ListStudentIDs(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing class students")
	}

	filter := &user.QueryFilter{
		IDs:          ids,
		NumberPrefix: ctx.QueryParam("numBeginWith"),
		NamePrefix:   ctx.QueryParam("nameBeginWith"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.userSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	resp := make([]UserBriefResponse, 0, len(students))
	for _, usr := range students {
		resp = append(resp, newUserBriefResponse(usr))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *classApi) enroll(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := api.bindSelf(ctx, uid)
	if err != nil {
		return err
	}

	if err := api.svc.Enroll(ctx.Request().Context(), id, studentID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	url := fmt.Sprintf("/class/%d/student/%d", id, studentID)
	return created(ctx, url, urlResponse{URL: url})
}

func (api *classApi) withdraw(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentId")
	if err != nil {
		return err
	}
	if studentID != uid {
		return errNotSelf
	}

	if err := api.svc.Withdraw(ctx.Request().Context(), id, studentID); err != nil {
		return errors.Wrap(err, "withdrawing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) retrieveGroup(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	grp, err := api.fixgroupSvc.GetByStudent(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "finding fixed group")
	}

	users, err := usersByID(ctx, api.userSvc, grp.MemberIDs)
	if err != nil {
		return err
	}
	resp := FixGroupResponse{Members: make([]UserBriefResponse, 0, len(grp.MemberIDs))}
	for _, memberID := range grp.MemberIDs {
		member := briefOf(users, memberID)
		if grp.IsLeader(memberID) {
			resp.Leader = &member
		}
		resp.Members = append(resp.Members, member)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *classApi) resignLeader(ctx echo.Context) error {
	return api.withSelf(ctx, func(classID, studentID int64) error {
		return errors.Wrap(api.fixgroupSvc.ResignLeader(ctx.Request().Context(), classID, studentID), "resigning leader")
	})
}

func (api *classApi) assignLeader(ctx echo.Context) error {
	return api.withSelf(ctx, func(classID, studentID int64) error {
		return errors.Wrap(api.fixgroupSvc.AssignLeader(ctx.Request().Context(), classID, studentID), "assigning leader")
	})
}

func (api *classApi) addMember(ctx echo.Context) error {
	return api.withMember(ctx, func(classID, callerID, studentID int64) error {
		_, err := api.fixgroupSvc.AddMember(ctx.Request().Context(), classID, callerID, studentID)
		return errors.Wrap(err, "adding fixed group member")
	})
}

func (api *classApi) removeMember(ctx echo.Context) error {
	return api.withMember(ctx, func(classID, callerID, studentID int64) error {
		return errors.Wrap(api.fixgroupSvc.RemoveMember(ctx.Request().Context(), classID, callerID, studentID), "removing fixed group member")
	})
}

// bindSelf binds the {"id": ...} body, which must reference the caller.
func (api *classApi) bindSelf(ctx echo.Context, uid int64) (int64, error) {
	var data core.Ref
	if err := bindBody(ctx, &data); err != nil {
		return 0, errors.Wrap(err, "binding to Ref")
	}
	if err := api.validate.Struct(data); err != nil {
		return 0, err
	}
	if data.ID != uid {
		return 0, errNotSelf
	}
	return data.ID, nil
}

func (api *classApi) withSelf(ctx echo.Context, fn func(classID, studentID int64) error) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := api.bindSelf(ctx, uid)
	if err != nil {
		return err
	}
	if err := fn(id, studentID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) withMember(ctx echo.Context, fn func(classID, callerID, studentID int64) error) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data core.Ref
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to Ref")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := fn(id, uid, data.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// usersByID maps the given ids to their users; unknown ids are left out.
func usersByID(ctx echo.Context, svc user.ServiceInterface, ids []int64) (map[int64]user.User, error) {
	users := make(map[int64]user.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	found, err := svc.Query(ctx.Request().Context(), &user.QueryFilter{IDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	for _, usr := range found {
		users[usr.ID] = usr
	}
	return users, nil
}

type (
	ClassSummaryResponse struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Site       string `json:"site"`
		CourseID   int64  `json:"courseId"`
		CourseName string `json:"courseName"`
	}

	ClassResponse struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Site     string `json:"site"`
		Time     string `json:"time"`
		CourseID int64  `json:"courseId"`
	}

	UserBriefResponse struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Number string `json:"number"`
	}

	FixGroupResponse struct {
		Leader  *UserBriefResponse  `json:"leader"`
		Members []UserBriefResponse `json:"members"`
	}
)

func newClassResponse(cls course.Class) ClassResponse {
	return ClassResponse{ID: cls.ID, Name: cls.Name, Site: cls.Site, Time: cls.Time, CourseID: cls.CourseID}
}

func newUserBriefResponse(usr user.User) UserBriefResponse {
	return UserBriefResponse{ID: usr.ID, Name: usr.Name, Number: usr.Number}
}

func briefOf(users map[int64]user.User, id int64) UserBriefResponse {
	usr := users[id]
	usr.ID = id
	return newUserBriefResponse(usr)
}
