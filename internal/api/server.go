package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/lodgru/internal/logger"
	"github.com/samcharles93/lodgru/internal/version"
)

type Server struct {
	store   *ResultStore
	service *GRUService
	log     logger.Logger
}

func NewServer(store *ResultStore, service *GRUService, log logger.Logger) *Server {
	if store == nil {
		store = NewResultStore(0)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		store:   store,
		service: service,
		log:     log.With("component", "api"),
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/gru/forward", s.handleForward)
	e.POST("/v1/gru/validate", s.handleValidate)
	e.GET("/v1/gru/results/:id", s.handleGetResult)
	e.DELETE("/v1/gru/results/:id", s.handleDeleteResult)

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) handleForward(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "gru service not configured")
	}
	req, err := decodeJSON[ForwardRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	res, err := s.service.Forward(c.Request().Context(), &req)
	if err != nil {
		s.log.Warn("forward rejected", "error", err)
		return writeEngineError(c, err)
	}
	s.store.Save(*res)
	s.log.Info("forward", "id", res.ID, "kernel", res.Kernel, "rows", len(res.Hidden), "elapsed_ms", res.ElapsedMS)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleValidate(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "gru service not configured")
	}
	req, err := decodeJSON[ValidateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	resp, err := s.service.Validate(c.Request().Context(), &req)
	if err != nil {
		s.log.Warn("validate rejected", "error", err)
		return writeEngineError(c, err)
	}
	if !resp.OK {
		s.log.Warn("kernel mismatch", "id", resp.ID, "failed", resp.Failed())
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetResult(c *echo.Context) error {
	id := c.Param("id")
	res, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("result %q not found", id))
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteResult(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, fmt.Sprintf("result %q not found", id))
	}
	return c.JSON(http.StatusOK, DeleteResultResp{ID: id, Deleted: true})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode request: %w", err)
	}
	return out, nil
}
