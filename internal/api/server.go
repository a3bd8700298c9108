package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/charrnn/internal/logger"
)

type Server struct {
	service *SampleService
	log     logger.Logger
}

func NewServer(service *SampleService, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		service: service,
		log:     log,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/vocabulary", s.handleVocabulary)
	e.POST("/v1/samples", s.handleCreateSamples)
	e.GET("/v1/samples/stream", s.handleStreamSamples)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVocabulary(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "sample service not configured", "", "")
	}
	chars := s.service.Vocabulary().Chars()
	out := VocabularyResponse{
		Object:     "vocabulary",
		Size:       len(chars),
		Characters: make([]string, len(chars)),
	}
	for i, r := range chars {
		out.Characters[i] = string(r)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateSamples(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "sample service not configured", "", "")
	}
	req, err := decodeJSON[SamplesRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "", err.Error())
	}
	resp, err := s.service.Generate(c.Request().Context(), &req, nil)
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("sampling failed", "error", err)
		}
		return writeError(c, status, body.Type, body.Message, body.Param, body.Code)
	}
	s.log.Debug("samples generated", "id", resp.ID, "samples", len(resp.Samples), "length", resp.Length)
	return c.JSON(http.StatusOK, resp)
}
