package middleware

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type LoggerOpts func(*loggerConfig)

type loggerConfig struct {
	middleware.RequestLoggerConfig
	logger *slog.Logger
}

// WithLogger sends request records to l instead of slog.Default().
func WithLogger(l *slog.Logger) LoggerOpts {
	return func(c *loggerConfig) {
		c.logger = l
	}
}

// WithSkipper leaves matching requests, such as health checks, unlogged.
func WithSkipper(skip middleware.Skipper) LoggerOpts {
	return func(c *loggerConfig) {
		c.Skipper = skip
	}
}

func Logger(opts ...LoggerOpts) echo.MiddlewareFunc {
	o := loggerConfig{RequestLoggerConfig: defaultOpt()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	o.LogValuesFunc = func(c echo.Context, v middleware.RequestLoggerValues) error {
		if v.Error == nil {
			logger.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
		} else {
			logger.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("err", v.Error.Error()),
			)
		}
		return nil
	}

	return middleware.RequestLoggerWithConfig(o.RequestLoggerConfig)
}

func defaultOpt() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogLatency:  true,
		LogURI:      true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
	}
}
