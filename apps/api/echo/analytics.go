package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/analytics"
	"github.com/trezcool/edupilot/core/student"
)

type analyticsApi struct {
	svc      *analytics.Service
	students *student.Service
}

func registerAnalyticsAPI(g *echo.Group, svc *analytics.Service, students *student.Service) {
	api := analyticsApi{svc: svc, students: students}

	g.POST("/analyze", api.analyze)
	g.GET("/dashboard", api.dashboard)
}

// Handlers

func (api *analyticsApi) analyze(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	students, err := api.students.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}

	a, err := api.svc.Analyze(ctx.Request().Context(), sess, students)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *analyticsApi) dashboard(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.Dashboard(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}
