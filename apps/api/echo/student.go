package echoapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
)

const maxBulkStudents = 500

type (
	studentApi struct {
		svc        *student.Service
		plans      *plan.Service
		validate   *validator.Validate
		translator ut.Translator
	}

	// StudentView is a student with its engagement, recomputed on every read.
	StudentView struct {
		student.Student
		Score int          `json:"score"`
		Tier  student.Tier `json:"tier"`
	}
)

func newStudentView(s student.Student) StudentView {
	score := student.Score(s)
	return StudentView{Student: s, Score: score, Tier: student.TierFor(score)}
}

func registerStudentAPI(g *echo.Group, svc *student.Service, plans *plan.Service, validate *validator.Validate, translator ut.Translator) {
	api := studentApi{svc: svc, plans: plans, validate: validate, translator: translator}

	g.GET("", api.query)
	g.POST("", api.create)
	g.POST("/bulk", api.bulkCreate)

	// detail endpoints
	g.GET("/:id", api.retrieve)
	g.PATCH("/:id/attributes", api.updateAttributes)
	g.GET("/:id/report", api.report)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	views := make([]StudentView, 0, len(students))
	for _, s := range students {
		views = append(views, newStudentView(s))
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	if len(ordering.Orderings) == 0 {
		ordering.Orderings = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sortStudents(views, ordering.Orderings)
	return ctx.JSON(http.StatusOK, views)
}

// sortStudents orders by name, score or _id. Unknown fields are ignored.
func sortStudents(views []StudentView, orderings []core.DBOrdering) {
	sort.SliceStable(views, func(i, j int) bool {
		for _, ord := range orderings {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(strings.ToLower(views[i].Name), strings.ToLower(views[j].Name))
			case "score":
				cmp = views[i].Score - views[j].Score
			case "_id", "id":
				cmp = strings.Compare(views[i].ID, views[j].ID)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return false
	})
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newStudentView(s))
}

func (api *studentApi) bulkCreate(ctx echo.Context) error {
	var data []student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to []NewStudent")
	}
	if len(data) == 0 || len(data) > maxBulkStudents {
		return core.NewValidationError(fmt.Errorf("send between 1 and %d students", maxBulkStudents))
	}

	var fldErrs []core.FieldError
	for i := range data {
		err := data[i].Validate(api.validate)
		if err == nil {
			continue
		}
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, vErr := range vErrs {
			fldErrs = append(fldErrs, core.FieldError{
				Field: fmt.Sprintf("[%d].%s", i, vErr.Field()),
				Error: vErr.Translate(api.translator),
			})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}

	res, err := api.svc.BulkCreate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newStudentView(s))
}

func (api *studentApi) updateAttributes(ctx echo.Context) error {
	var data student.UpdateGrades
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrades")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateAttributes(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newStudentView(s))
}

func (api *studentApi) report(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	conf, err := api.plans.LoadCourseConfig(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "loading course config")
	}

	rep, err := api.svc.Report(ctx.Request().Context(), ctx.Param("id"), conf.Thresholds())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}
