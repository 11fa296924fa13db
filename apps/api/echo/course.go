package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
)

type courseApi struct {
	svc        course.ServiceInterface
	userSvc    user.ServiceInterface
	seminarSvc seminar.ServiceInterface
	groupSvc   seminargroup.ServiceInterface
	validate   *validator.Validate
}

func registerCourseAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:        deps.CourseSvc,
		userSvc:    deps.UserSvc,
		seminarSvc: deps.SeminarSvc,
		groupSvc:   deps.GroupSvc,
		validate:   deps.Validate,
	}

	cg := app.Group("/course", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, teacherOnly)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, teacherOnly)
	cg.DELETE("/:id", api.destroy, teacherOnly)
	cg.GET("/:id/class", api.queryClasses)
	cg.POST("/:id/class", api.createClass, teacherOnly)
	cg.GET("/:id/seminar", api.querySeminars)
	cg.POST("/:id/seminar", api.createSeminar, teacherOnly)
	cg.GET("/:id/grade", api.queryGrades)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	uid, err := claims.UserID()
	if err != nil {
		return err
	}

	var sums []course.Summary
	switch claims.Type {
	case user.TypeTeacher:
		sums, err = api.svc.QueryByTeacher(ctx.Request().Context(), uid)
	case user.TypeStudent:
		sums, err = api.svc.QueryByStudent(ctx.Request().Context(), uid)
	default:
		return errHttpForbidden
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}

	resp := make([]CourseSummaryResponse, 0, len(sums))
	for _, sum := range sums {
		resp = append(resp, CourseSummaryResponse{
			ID:         sum.ID,
			Name:       sum.Name,
			NumClass:   sum.NumClass,
			NumStudent: sum.NumStudent,
			StartTime:  sum.StartDate,
			EndTime:    sum.EndDate,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) create(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), uid, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return created(ctx, fmt.Sprintf("/course/%d", crs.ID), idResponse{ID: crs.ID})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	resp := CourseResponse{ID: crs.ID, Name: crs.Name, Description: crs.Description}
	teacher, err := api.userSvc.GetByID(ctx.Request().Context(), crs.TeacherID)
	switch {
	case err == nil:
		resp.TeacherName = teacher.Name
		resp.TeacherEmail = teacher.Email
	case !core.IsNotFound(err):
		return errors.Wrap(err, "finding teacher by ID")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) update(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	crs, err := api.svc.GetOwned(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "finding owned course")
	}

	var data course.UpdateCourse
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(crs, api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Update(ctx.Request().Context(), crs, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id, uid); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryClasses(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryClassesByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}

	resp := make([]ClassBriefResponse, 0, len(classes))
	for _, cls := range classes {
		resp = append(resp, ClassBriefResponse{ID: cls.ID, Name: cls.Name})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) createClass(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewClass
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), id, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return created(ctx, fmt.Sprintf("/class/%d", cls.ID), idResponse{ID: cls.ID})
}

func (api *courseApi) querySeminars(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	seminars, err := api.seminarSvc.QueryByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying seminars")
	}

	resp := make([]SeminarResponse, 0, len(seminars))
	for _, sem := range seminars {
		resp = append(resp, newSeminarResponse(sem))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *courseApi) createSeminar(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data seminar.NewSeminar
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewSeminar")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sem, err := api.seminarSvc.Create(ctx.Request().Context(), id, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating seminar")
	}
	return created(ctx, fmt.Sprintf("/seminar/%d", sem.ID), idResponse{ID: sem.ID})
}

// queryGrades lists the seminar groups of the course; students only see their own groups.
func (api *courseApi) queryGrades(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Type != user.TypeTeacher && claims.Type != user.TypeStudent {
		return errHttpForbidden
	}
	uid, err := claims.UserID()
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	seminars, err := api.seminarSvc.QueryByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying seminars")
	}
	semByID := make(map[int64]seminar.Seminar, len(seminars))
	filter := seminargroup.QueryFilter{SeminarIDs: make([]int64, 0, len(seminars))}
	for _, sem := range seminars {
		semByID[sem.ID] = sem
		filter.SeminarIDs = append(filter.SeminarIDs, sem.ID)
	}
	if claims.Type == user.TypeStudent {
		filter.StudentID = uid
	}

	groups, err := api.groupSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying seminar groups")
	}
	leaderIDs := make([]int64, 0, len(groups))
	for _, grp := range groups {
		if grp.LeaderID != 0 {
			leaderIDs = append(leaderIDs, grp.LeaderID)
		}
	}
	leaders, err := usersByID(ctx, api.userSvc, leaderIDs)
	if err != nil {
		return err
	}

	resp := make([]CourseGradeResponse, 0, len(groups))
	for _, grp := range groups {
		resp = append(resp, CourseGradeResponse{
			SeminarID:         grp.SeminarID,
			SeminarName:       semByID[grp.SeminarID].Name,
			GroupID:           grp.ID,
			LeaderName:        leaders[grp.LeaderID].Name,
			PresentationGrade: grp.PresentationGrade,
			ReportGrade:       grp.ReportGrade,
			Grade:             grp.FinalGrade,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	CourseSummaryResponse struct {
		ID         int64     `json:"id"`
		Name       string    `json:"name"`
		NumClass   int       `json:"numClass"`
		NumStudent int       `json:"numStudent"`
		StartTime  time.Time `json:"startTime"`
		EndTime    time.Time `json:"endTime"`
	}

	CourseResponse struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		TeacherName  string `json:"teacherName"`
		TeacherEmail string `json:"teacherEmail"`
	}

	ClassBriefResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	CourseGradeResponse struct {
		SeminarID         int64    `json:"seminarId"`
		SeminarName       string   `json:"seminarName"`
		GroupID           int64    `json:"groupId"`
		LeaderName        string   `json:"leaderName"`
		PresentationGrade *float64 `json:"presentationGrade"`
		ReportGrade       *float64 `json:"reportGrade"`
		Grade             *float64 `json:"grade"`
	}
)
