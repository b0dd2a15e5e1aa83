package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/holidarr/holidarr/internal/classcache"
	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/matcher"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/orchestrator"
)

type holidayInfo struct {
	Name    holiday.Holiday `json:"name"`
	Token   string          `json:"token"`
	Curated bool            `json:"curated"`
}

type holidaysResponse struct {
	Holidays []holidayInfo     `json:"holidays"`
	Curated  []holiday.Holiday `json:"curated"`
}

// GET /api/v1/holidays
func (s *Server) listHolidays(c echo.Context) error {
	curated := holiday.NewSet(holiday.Curated...)
	resp := holidaysResponse{Curated: holiday.Curated}
	for _, h := range holiday.All() {
		resp.Holidays = append(resp.Holidays, holidayInfo{Name: h, Token: h.Token(), Curated: curated.Has(h)})
	}
	return c.JSON(http.StatusOK, resp)
}

type matchRequest struct {
	Media     []media.Envelope `json:"media"`
	Threshold int              `json:"threshold"`
	Holidays  []string         `json:"holidays"`
}

// POST /api/v1/holidays/match
func (s *Server) matchHolidays(c echo.Context) error {
	var req matchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	items, holidays, err := decodeSelection(req.Media, req.Holidays)
	if err != nil {
		return err
	}
	if req.Threshold < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "threshold must not be negative")
	}

	matches := s.deps.Orchestrator.Match(c.Request().Context(), items, holidays, req.Threshold)
	if matches == nil {
		matches = []matcher.HolidayMatch{}
	}
	return c.JSON(http.StatusOK, matches)
}

type classifyRequest struct {
	Media            []media.Envelope `json:"media"`
	SelectedHolidays []string         `json:"selectedHolidays"`
	UseAI            bool             `json:"useAI"`
	Threshold        int              `json:"threshold"`
}

// POST /api/v1/holidays/classify
func (s *Server) classify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	items, holidays, err := decodeSelection(req.Media, req.SelectedHolidays)
	if err != nil {
		return err
	}

	summary, err := s.deps.Orchestrator.Run(c.Request().Context(), orchestrator.Request{
		Media:            items,
		SelectedHolidays: holidays,
		UseAI:            req.UseAI,
		Threshold:        req.Threshold,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "classification cancelled")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// GET /api/v1/classifications/:externalId
func (s *Server) getClassification(c echo.Context) error {
	rec, err := s.deps.Cache.GetCached(c.Request().Context(), c.Param("externalId"))
	if err != nil {
		if errors.Is(err, classcache.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "classification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func decodeSelection(envs []media.Envelope, names []string) ([]media.Item, []holiday.Holiday, error) {
	items, err := media.DecodeAll(envs)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	holidays, err := holiday.ParseAll(names)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return items, holidays, nil
}
