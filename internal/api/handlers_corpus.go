package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type corpusRefreshResponse struct {
	Holidays int            `json:"holidays"`
	Titles   int            `json:"titles"`
	Counts   map[string]int `json:"counts"`
}

// POST /api/v1/corpus/refresh
func (s *Server) refreshCorpus(c echo.Context) error {
	titles, err := s.deps.Corpus.Refresh(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := corpusRefreshResponse{Holidays: len(titles), Counts: make(map[string]int, len(titles))}
	for h, list := range titles {
		resp.Counts[h.String()] = len(list)
		resp.Titles += len(list)
	}
	return c.JSON(http.StatusOK, resp)
}

// DELETE /api/v1/corpus/cache
func (s *Server) clearCorpusCache(c echo.Context) error {
	if err := s.deps.Corpus.ClearCache(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
