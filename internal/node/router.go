package node

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
)

type ExecuteRequest struct {
	Circuit string `json:"circuit"`
	PktID   *int64 `json:"pkt_id"`
	Reps    int    `json:"reps"`
}

type ExecuteResponse struct {
	JobID int64 `json:"job_id"`
}

type ResultsRequest struct {
	PktID *int64 `json:"pkt_id"`
}

type Router struct {
	e    *echo.Echo
	node *Node
}

func NewRouter(e *echo.Echo, node *Node) *Router {
	return &Router{
		e:    e,
		node: node,
	}
}

func (r *Router) Bind() {
	r.e.GET("/qpu/config", r.configHandler)
	r.e.POST("/execute", r.executeHandler)
	r.e.GET("/results", r.resultsHandler)
}

func (r *Router) configHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, r.node.Config())
}

func (r *Router) executeHandler(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}
	if req.Circuit == "" {
		return apperr.NewValidation("circuit is required")
	}
	if req.PktID == nil {
		return apperr.NewValidation("pkt_id is required")
	}
	if req.Reps < 0 {
		return apperr.NewValidation("reps must not be negative")
	}

	if err := r.node.Submit(*req.PktID, req.Circuit, req.Reps); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, ExecuteResponse{JobID: *req.PktID})
}

// resultsHandler blocks until the packet's result is ready or the client
// gives up.
func (r *Router) resultsHandler(c echo.Context) error {
	pktID, err := resultsPacketID(c)
	if err != nil {
		return err
	}

	res, err := r.node.Await(c.Request().Context(), pktID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return echo.NewHTTPError(http.StatusGatewayTimeout, "result not ready")
		}
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// resultsPacketID reads pkt_id from the query string or, as the connector
// sends it, from a JSON body.
func resultsPacketID(c echo.Context) (int64, error) {
	if q := c.QueryParam("pkt_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return 0, apperr.NewValidationWrap("invalid pkt_id", err)
		}
		return id, nil
	}

	var req ResultsRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return 0, apperr.NewValidationWrap("invalid request body", err)
	}
	if req.PktID == nil {
		return 0, apperr.NewValidation("pkt_id is required")
	}
	return *req.PktID, nil
}
