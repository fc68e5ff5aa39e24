package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
	Title string `json:"title,omitempty"`
}

// GlobalErrorHandler maps the error taxonomy onto HTTP statuses for the echo
// node: validation 400, translation 422, transport 502, configuration 500.
func GlobalErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			_ = c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error(), Title: "validation error"})
			return
		}

		var te *TranslationError
		if errors.As(err, &te) {
			_ = c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: te.Error(), Title: "translation error"})
			return
		}

		var tre *TransportError
		if errors.As(err, &tre) {
			_ = c.JSON(http.StatusBadGateway, errorResponse{Error: tre.Error(), Title: "transport error"})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)})
			return
		}

		var ce *ConfigError
		if errors.As(err, &ce) {
			slog.Error("Configuration error", "error", err)
			_ = c.JSON(http.StatusInternalServerError, errorResponse{Error: ce.Error(), Title: "configuration error"})
			return
		}

		slog.Error("Unhandled error", "error", err)
		_ = c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
