package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/analytics"
	"github.com/trezcool/edupilot/core/llmjson"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")

	errExtraction = "the model answer holds no structured document"

	// domain errors answered with their own message
	errorCodes = []struct {
		err  error
		code int
	}{
		{user.ErrAuthenticationFailed, http.StatusUnauthorized},
		{user.ErrNoSession, http.StatusUnauthorized},
		{student.ErrNotFound, http.StatusNotFound},
		{plan.ErrNotFound, http.StatusNotFound},
		{plan.ErrEtapaNotFound, http.StatusNotFound},
		{plan.ErrAulaNotFound, http.StatusNotFound},
		{plan.ErrNoDraft, http.StatusConflict},
		{plan.ErrNotStructured, http.StatusConflict},
		{analytics.ErrNoStudents, http.StatusConflict},
	}
)

func domainErrorCode(err error) (int, bool) {
	for _, e := range errorCodes {
		if err == e.err {
			return e.code, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := domainErrorCode(cause); ok {
			code, message = c, cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			case *llmjson.ExtractionFailure:
				code = http.StatusUnprocessableEntity
				message = echo.Map{"error": errExtraction, "raw": origErr.Raw}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var teacher user.Teacher
				if sess, sErr := contextSession(ctx); sErr == nil {
					teacher = sess.Teacher
				}
				logger.Error(msg, errors.Wrap(err, msg), teacher)

				if ctx.Echo().Debug {
					message = err.Error()
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
