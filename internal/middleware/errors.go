package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/diagram-service/internal/handler"
	"github.com/iliyamo/diagram-service/internal/logger"
	"github.com/iliyamo/diagram-service/internal/repository"
)

// storeMessages maps repository operations to the message clients see.
var storeMessages = map[string]string{
	"create": "Failed to create diagram",
	"read":   "Failed to read diagrams",
	"list":   "Failed to read diagrams",
	"update": "Failed to update diagram",
	"delete": "Failed to delete diagram",
}

// ErrorHandler renders every error returned by a handler or middleware with
// the same envelope: status, message, error and timestamp.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, message, detail := classify(err)
	if code >= http.StatusInternalServerError {
		logger.L.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", code,
			"err", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{
			"status":    "error",
			"message":   message,
			"error":     detail,
			"timestamp": handler.Timestamp(time.Now()),
		})
	}
	if err != nil {
		logger.L.Error("writing error response failed", "err", err)
	}
}

func classify(err error) (code int, message, detail string) {
	var (
		ve *handler.ValidationError
		nf *handler.NotFoundError
		se *repository.StoreError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message, ve.Message
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error(), nf.Error()
	case errors.As(err, &se):
		msg, ok := storeMessages[se.Op]
		if !ok {
			msg = "Database operation failed"
		}
		return http.StatusInternalServerError, msg, se.Error()
	case errors.As(err, &he):
		detail := http.StatusText(he.Code)
		if he.Message != nil {
			detail = fmt.Sprint(he.Message)
		}
		return he.Code, detail, detail
	default:
		return http.StatusInternalServerError, "Internal server error", err.Error()
	}
}
