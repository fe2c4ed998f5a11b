package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/chat"
)

type chatApi struct {
	svc      *chat.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, svc *chat.Service, validate *validator.Validate) {
	api := chatApi{svc: svc, validate: validate}

	g.POST("", api.reply)
}

func (api *chatApi) reply(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	var data chat.Message
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Message")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reply, err := api.svc.Reply(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reply)
}
