package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
)

type groupApi struct {
	svc       seminargroup.ServiceInterface
	presenter groupPresenter
	validate  *validator.Validate
}

func registerGroupAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := groupApi{
		svc:       deps.GroupSvc,
		presenter: newGroupPresenter(deps),
		validate:  deps.Validate,
	}

	gg := app.Group("/group", jwt)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.POST("/:id/topic", api.selectTopic, studentOnly)
	gg.DELETE("/:id/topic/:topicId", api.deselectTopic, studentOnly)
	gg.GET("/:id/grade", api.retrieveGrade)
	gg.PUT("/:id/grade/report", api.gradeReport, teacherOnly)
	gg.PUT("/:id/grade/presentation/:studentId", api.scorePresentation, studentOnly)
}

// Handlers

func (api *groupApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	grp, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding seminar group by ID")
	}
	resp, err := api.presenter.present(ctx, grp)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp[0])
}

func (api *groupApi) update(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data seminargroup.UpdateGroup
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.UpdateReport(ctx.Request().Context(), id, uid, data); err != nil {
		return errors.Wrap(err, "updating report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) selectTopic(ctx echo.Context) error {
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
	if data.ID <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "this field is required"})
	}

	gt, err := api.svc.SelectTopic(ctx.Request().Context(), id, uid, data.ID)
	if err != nil {
		return errors.Wrap(err, "selecting topic")
	}
	url := fmt.Sprintf("/group/%d/topic/%d", gt.GroupID, gt.TopicID)
	return created(ctx, url, urlResponse{URL: url})
}

func (api *groupApi) deselectTopic(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	topicID, err := pathID(ctx, "topicId")
	if err != nil {
		return err
	}
	if err := api.svc.DeselectTopic(ctx.Request().Context(), id, uid, topicID); err != nil {
		return errors.Wrap(err, "deselecting topic")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) retrieveGrade(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	grp, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding seminar group by ID")
	}
	gts, err := api.svc.QueryTopics(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying group topics")
	}
	topics, err := api.presenter.topicsOf(ctx, grp.SeminarID)
	if err != nil {
		return err
	}

	resp := GroupGradeResponse{
		PresentationGrade: make([]TopicGradeResponse, 0, len(gts)),
		ReportGrade:       grp.ReportGrade,
		FinalGrade:        grp.FinalGrade,
	}
	for _, gt := range gts {
		resp.PresentationGrade = append(resp.PresentationGrade, TopicGradeResponse{
			TopicID:   gt.TopicID,
			TopicName: topics[gt.TopicID].Name,
			Grade:     gt.PresentationGrade,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *groupApi) gradeReport(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data seminargroup.ReportGrade
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to ReportGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.SetReportGrade(ctx.Request().Context(), id, uid, *data.ReportGrade); err != nil {
		return errors.Wrap(err, "grading report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) scorePresentation(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sid, err := pathID(ctx, "studentId")
	if err != nil {
		return err
	}
	if sid != uid {
		return errNotSelf
	}

	var data seminargroup.PresentationScores
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to PresentationScores")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ScorePresentation(ctx.Request().Context(), id, uid, data.Scores); err != nil {
		return errors.Wrap(err, "scoring presentation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// groupPresenter renders seminar groups with their members and chosen topics.
type groupPresenter struct {
	userSvc    user.ServiceInterface
	seminarSvc seminar.ServiceInterface
	groupSvc   seminargroup.ServiceInterface
}

func newGroupPresenter(deps ServerDeps) groupPresenter {
	return groupPresenter{userSvc: deps.UserSvc, seminarSvc: deps.SeminarSvc, groupSvc: deps.GroupSvc}
}

func (p groupPresenter) topicsOf(ctx echo.Context, seminarID int64) (map[int64]seminar.Topic, error) {
	topics, err := p.seminarSvc.QueryTopics(ctx.Request().Context(), seminarID)
	if err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	byID := make(map[int64]seminar.Topic, len(topics))
	for _, tpc := range topics {
		byID[tpc.ID] = tpc
	}
	return byID, nil
}

func (p groupPresenter) present(ctx echo.Context, groups ...seminargroup.SeminarGroup) ([]SeminarGroupResponse, error) {
	var ids []int64
	for _, grp := range groups {
		if grp.LeaderID != 0 {
			ids = append(ids, grp.LeaderID)
		}
		ids = append(ids, grp.MemberIDs...)
	}
	users, err := usersByID(ctx, p.userSvc, core.UniqueInt64s(ids))
	if err != nil {
		return nil, err
	}

	topicsBySeminar := make(map[int64]map[int64]seminar.Topic)
	resp := make([]SeminarGroupResponse, 0, len(groups))
	for _, grp := range groups {
		topics, ok := topicsBySeminar[grp.SeminarID]
		if !ok {
			if topics, err = p.topicsOf(ctx, grp.SeminarID); err != nil {
				return nil, err
			}
			topicsBySeminar[grp.SeminarID] = topics
		}
		gts, err := p.groupSvc.QueryTopics(ctx.Request().Context(), grp.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying group topics")
		}

		r := SeminarGroupResponse{
			ID:                grp.ID,
			SeminarID:         grp.SeminarID,
			ClassID:           grp.ClassID,
			Members:           make([]UserBriefResponse, 0, len(grp.MemberIDs)),
			Topics:            make([]TopicBriefResponse, 0, len(gts)),
			Report:            grp.Report,
			PresentationGrade: grp.PresentationGrade,
			ReportGrade:       grp.ReportGrade,
			FinalGrade:        grp.FinalGrade,
		}
		if grp.LeaderID != 0 {
			leader := briefOf(users, grp.LeaderID)
			r.Leader = &leader
		}
		for _, mid := range grp.MemberIDs {
			if mid != grp.LeaderID {
				r.Members = append(r.Members, briefOf(users, mid))
			}
		}
		for _, gt := range gts {
			r.Topics = append(r.Topics, TopicBriefResponse{ID: gt.TopicID, Name: topics[gt.TopicID].Name})
		}
		resp = append(resp, r)
	}
	return resp, nil
}

type (
	TopicBriefResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	SeminarGroupResponse struct {
		ID                int64                `json:"id"`
		SeminarID         int64                `json:"seminarId"`
		ClassID           int64                `json:"classId"`
		Leader            *UserBriefResponse   `json:"leader"`
		Members           []UserBriefResponse  `json:"members"`
		Topics            []TopicBriefResponse `json:"topics"`
		Report            string               `json:"report"`
		PresentationGrade *float64             `json:"presentationGrade"`
		ReportGrade       *float64             `json:"reportGrade"`
		FinalGrade        *float64             `json:"finalGrade"`
	}

	TopicGradeResponse struct {
		TopicID   int64    `json:"topicId"`
		TopicName string   `json:"topicName"`
		Grade     *float64 `json:"grade"`
	}

	GroupGradeResponse struct {
		PresentationGrade []TopicGradeResponse `json:"presentationGrade"`
		ReportGrade       *float64             `json:"reportGrade"`
		FinalGrade        *float64             `json:"finalGrade"`
	}
)
