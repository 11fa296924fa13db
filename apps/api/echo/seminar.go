package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
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

type seminarApi struct {
	svc       seminar.ServiceInterface
	courseSvc course.ServiceInterface
	groupSvc  seminargroup.ServiceInterface
	presenter groupPresenter
	validate  *validator.Validate
}

func registerSeminarAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := seminarApi{
		svc:       deps.SeminarSvc,
		courseSvc: deps.CourseSvc,
		groupSvc:  deps.GroupSvc,
		presenter: newGroupPresenter(deps),
		validate:  deps.Validate,
	}

	sg := app.Group("/seminar", jwt)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, teacherOnly)
	sg.DELETE("/:id", api.destroy, teacherOnly)
	sg.GET("/:id/topic", api.queryTopics)
	sg.PUT("/:id/topic", api.createTopic, teacherOnly)
	sg.POST("/:id/topic", api.createTopic, teacherOnly)
	sg.GET("/:id/group", api.queryGroups)
	sg.POST("/:id/group", api.createGroups, teacherOnly)

	tg := app.Group("/topic", jwt)
	tg.GET("/:id", api.retrieveTopic)
	tg.PUT("/:id", api.updateTopic, teacherOnly)
	tg.DELETE("/:id", api.destroyTopic, teacherOnly)
	tg.GET("/:id/group", api.queryTopicGroups)
}

// Seminar handlers

func (api *seminarApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sem, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding seminar by ID")
	}
	return ctx.JSON(http.StatusOK, newSeminarResponse(sem))
}

func (api *seminarApi) update(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sem, _, err := api.svc.GetOwned(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "finding owned seminar")
	}

	var data seminar.UpdateSeminar
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateSeminar")
	}
	if err := data.Validate(sem, api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Update(ctx.Request().Context(), sem, data); err != nil {
		return errors.Wrap(err, "updating seminar")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *seminarApi) destroy(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id, uid); err != nil {
		return errors.Wrap(err, "deleting seminar")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *seminarApi) queryTopics(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	uid, err := claims.UserID()
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	sem, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding seminar by ID")
	}
	topics, err := api.svc.QueryTopics(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	classIDs, err := api.callerClassIDs(ctx.Request().Context(), sem.CourseID, uid, claims.Type)
	if err != nil {
		return err
	}

	resp := make([]TopicResponse, 0, len(topics))
	for _, tpc := range topics {
		r := newTopicResponse(tpc)
		if r.GroupLeft, err = api.groupsLeft(ctx.Request().Context(), tpc, classIDs); err != nil {
			return err
		}
		resp = append(resp, r)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// callerClassIDs returns the classes of the course a student attends, or all of them for anyone else.
func (api *seminarApi) callerClassIDs(ctx context.Context, courseID, uid int64, typ string) ([]int64, error) {
	var (
		classes []course.Class
		err     error
	)
	if typ == user.TypeStudent {
		classes, err = api.courseSvc.QueryClassesByStudent(ctx, uid)
	} else {
		classes, err = api.courseSvc.QueryClassesByCourse(ctx, courseID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	ids := make([]int64, 0, len(classes))
	for _, cls := range classes {
		if cls.CourseID == courseID {
			ids = append(ids, cls.ID)
		}
	}
	return ids, nil
}

// groupsLeft is the smallest number of groups that can still choose tpc over classIDs; nil when unlimited.
func (api *seminarApi) groupsLeft(ctx context.Context, tpc seminar.Topic, classIDs []int64) (*int, error) {
	if tpc.GroupNumberLimit == 0 {
		return nil, nil
	}
	left := tpc.GroupNumberLimit
	for _, classID := range classIDs {
		count, err := api.groupSvc.CountTopicGroups(ctx, tpc.ID, classID)
		if err != nil {
			return nil, errors.Wrap(err, "counting topic groups")
		}
		if l := tpc.GroupNumberLimit - count; l < left {
			left = l
		}
	}
	if left < 0 {
		left = 0
	}
	return &left, nil
}

func (api *seminarApi) createTopic(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data seminar.NewTopic
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tpc, err := api.svc.CreateTopic(ctx.Request().Context(), id, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return created(ctx, fmt.Sprintf("/topic/%d", tpc.ID), idResponse{ID: tpc.ID})
}

func (api *seminarApi) queryGroups(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding seminar by ID")
	}

	filter := seminargroup.QueryFilter{SeminarIDs: []int64{id}}
	if cid := ctx.QueryParam("classId"); cid != "" {
		classID, err := strconv.ParseInt(cid, 10, 64)
		if err != nil || classID <= 0 {
			return core.NewArgumentError(fmt.Sprintf("invalid classId: %q", cid))
		}
		filter.ClassID = classID
	}

	groups, err := api.groupSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying seminar groups")
	}
	resp, err := api.presenter.present(ctx, groups...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *seminarApi) createGroups(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	groups, err := api.groupSvc.AutoGroup(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "grouping seminar")
	}
	resp := make([]idResponse, 0, len(groups))
	for _, grp := range groups {
		resp = append(resp, idResponse{ID: grp.ID})
	}
	return created(ctx, fmt.Sprintf("/seminar/%d/group", id), resp)
}

// Topic handlers

func (api *seminarApi) retrieveTopic(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	tpc, err := api.svc.GetTopic(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding topic by ID")
	}
	return ctx.JSON(http.StatusOK, newTopicResponse(tpc))
}

func (api *seminarApi) updateTopic(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	tpc, err := api.svc.GetOwnedTopic(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "finding owned topic")
	}

	var data seminar.UpdateTopic
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateTopic")
	}
	if err := data.Validate(tpc, api.validate); err != nil {
		return err
	}

	if _, err := api.svc.UpdateTopic(ctx.Request().Context(), tpc, data); err != nil {
		return errors.Wrap(err, "updating topic")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *seminarApi) destroyTopic(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteTopic(ctx.Request().Context(), id, uid); err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *seminarApi) queryTopicGroups(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err := api.svc.GetTopic(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding topic by ID")
	}

	groups, err := api.groupSvc.Query(ctx.Request().Context(), seminargroup.QueryFilter{TopicID: id})
	if err != nil {
		return errors.Wrap(err, "querying seminar groups")
	}
	resp := make([]idResponse, 0, len(groups))
	for _, grp := range groups {
		resp = append(resp, idResponse{ID: grp.ID})
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	SeminarResponse struct {
		ID             int64     `json:"id"`
		CourseID       int64     `json:"courseId"`
		Name           string    `json:"name"`
		Description    string    `json:"description"`
		GroupingMethod string    `json:"groupingMethod"`
		StartTime      time.Time `json:"startTime"`
		EndTime        time.Time `json:"endTime"`
	}

	TopicResponse struct {
		ID               int64  `json:"id"`
		SeminarID        int64  `json:"seminarId"`
		Serial           string `json:"serial"`
		Name             string `json:"name"`
		Description      string `json:"description"`
		GroupLimit       int    `json:"groupLimit"`
		GroupMemberLimit int    `json:"groupMemberLimit"`
		GroupLeft        *int   `json:"groupLeft,omitempty"`
	}
)

func newSeminarResponse(sem seminar.Seminar) SeminarResponse {
	return SeminarResponse{
		ID:             sem.ID,
		CourseID:       sem.CourseID,
		Name:           sem.Name,
		Description:    sem.Description,
		GroupingMethod: sem.GroupingMethod(),
		StartTime:      sem.StartTime,
		EndTime:        sem.EndTime,
	}
}

func newTopicResponse(tpc seminar.Topic) TopicResponse {
	return TopicResponse{
		ID:               tpc.ID,
		SeminarID:        tpc.SeminarID,
		Serial:           tpc.Serial,
		Name:             tpc.Name,
		Description:      tpc.Description,
		GroupLimit:       tpc.GroupNumberLimit,
		GroupMemberLimit: tpc.GroupStudentLimit,
	}
}
