package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core/school"
)

type schoolApi struct {
	svc      school.ServiceInterface
	validate *validator.Validate
}

func registerSchoolAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{svc: deps.SchoolSvc, validate: deps.Validate}

	sg := app.Group("/school", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, teacherOnly)
	sg.GET("/province", api.queryProvinces)
	sg.GET("/city", api.queryCities)
	sg.GET("/:id", api.retrieve)
}

func (api *schoolApi) query(ctx echo.Context) error {
	filter := school.QueryFilter{City: ctx.QueryParam("city"), Province: ctx.QueryParam("province")}
	schools, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sch, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return ctx.JSON(http.StatusOK, SchoolResponse{Name: sch.Name, Province: sch.Province, City: sch.City})
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return created(ctx, fmt.Sprintf("/school/%d", sch.ID), sch)
}

func (api *schoolApi) queryProvinces(ctx echo.Context) error {
	provinces, err := api.svc.ListProvinces(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing provinces")
	}
	if provinces == nil {
		provinces = []string{}
	}
	return ctx.JSON(http.StatusOK, provinces)
}

func (api *schoolApi) queryCities(ctx echo.Context) error {
	cities, err := api.svc.ListCities(ctx.Request().Context(), ctx.QueryParam("province"))
	if err != nil {
		return errors.Wrap(err, "listing cities")
	}
	if cities == nil {
		cities = []string{}
	}
	return ctx.JSON(http.StatusOK, cities)
}

type SchoolResponse struct {
	Name     string `json:"name"`
	Province string `json:"province"`
	City     string `json:"city"`
}
