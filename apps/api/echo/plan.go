package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/user"
)

type (
	planApi struct {
		svc      *plan.Service
		validate *validator.Validate
	}

	// DraftResponse is the draft after an edit, with the aula it touched.
	DraftResponse struct {
		Document plan.Document `json:"document"`
		Aula     *plan.Aula    `json:"aula,omitempty"`
	}
)

func registerPlanAPI(g *echo.Group, svc *plan.Service, validate *validator.Validate) {
	api := planApi{svc: svc, validate: validate}

	g.GET("/course-config", api.courseConfig)
	g.PUT("/course-config", api.saveCourseConfig)

	pg := g.Group("/plans")
	pg.GET("", api.querySaved)
	pg.POST("/topics", api.extractTopics)
	pg.POST("/generate", api.generate)
	pg.POST("/:id/load", api.loadSaved)

	// draft endpoints
	pg.GET("/current", api.current)
	pg.POST("/current/save", api.save)
	pg.POST("/current/etapas/:etapa/aulas", api.addAula)
	pg.PATCH("/current/etapas/:etapa/aulas/:aula", api.updateAula)
	pg.DELETE("/current/etapas/:etapa/aulas/:aula", api.removeAula)
}

// Handlers

func (api *planApi) courseConfig(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	conf, err := api.svc.LoadCourseConfig(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *planApi) saveCourseConfig(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	var data plan.CourseConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseConfig")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	conf, err := api.svc.SaveCourseConfig(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *planApi) extractTopics(ctx echo.Context) error {
	var data plan.Materials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Materials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topics, err := api.svc.ExtractTopics(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *planApi) generate(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	var data plan.GenerationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Generate(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

// current answers the draft, loading the stored current plan when nothing is being edited.
func (api *planApi) current(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	doc, err := api.svc.Draft(sess)
	if err == nil {
		return ctx.JSON(http.StatusOK, DraftResponse{Document: doc})
	}
	if errors.Cause(err) != plan.ErrNoDraft {
		return err
	}

	p, err := api.svc.LoadCurrent(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DraftResponse{Document: p.Document})
}

func (api *planApi) save(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Save(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) addAula(ctx echo.Context) error {
	sess, etapa, err := draftParams(ctx)
	if err != nil {
		return err
	}
	doc, aula, err := api.svc.AddAula(sess, etapa)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, DraftResponse{Document: doc, Aula: &aula})
}

func (api *planApi) updateAula(ctx echo.Context) error {
	sess, etapa, err := draftParams(ctx)
	if err != nil {
		return err
	}
	idx, err := indexParam(ctx, "aula")
	if err != nil {
		return err
	}
	var data plan.AulaPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AulaPatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	doc, aula, err := api.svc.UpdateAula(sess, etapa, idx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DraftResponse{Document: doc, Aula: &aula})
}

func (api *planApi) removeAula(ctx echo.Context) error {
	sess, etapa, err := draftParams(ctx)
	if err != nil {
		return err
	}
	idx, err := indexParam(ctx, "aula")
	if err != nil {
		return err
	}

	doc, err := api.svc.RemoveAula(sess, etapa, idx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DraftResponse{Document: doc})
}

func (api *planApi) querySaved(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	plans, err := api.svc.ListSaved(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) loadSaved(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.LoadSaved(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func draftParams(ctx echo.Context) (user.Session, int, error) {
	sess, err := contextSession(ctx)
	if err != nil {
		return user.Session{}, 0, err
	}
	etapa, err := indexParam(ctx, "etapa")
	if err != nil {
		return user.Session{}, 0, err
	}
	return sess, etapa, nil
}
