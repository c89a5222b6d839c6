package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spektr-org/noshow/appointment"
	"github.com/spektr-org/noshow/engine"
	"github.com/spektr-org/noshow/schema"
)

// Query parameter names of the three filter controls.
const (
	ParamGender   = "gender"
	ParamAgeGroup = "age_group"
	ParamMonth    = "month"
)

// NoSelectionHeader carries the user-facing message on a 204 response.
const NoSelectionHeader = "X-No-Selection"

const noSelectionMessage = "No data available for the selected filters."

type filtersResponse struct {
	Schema           schema.Config      `json:"schema"`
	DefaultSelection engine.FilterState `json:"default_selection"`
}

type reloadResponse struct {
	Version   string                  `json:"version"`
	Records   int                     `json:"records"`
	Anomalies appointment.DeriveStats `json:"anomalies"`
}

func (s *Server) Health(c echo.Context) error {
	snap := s.snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": snap.schema.Version,
		"records": snap.schema.Records,
	})
}

// Filters returns the filter options and the initial selection.
func (s *Server) Filters(c echo.Context) error {
	snap := s.snapshot()
	return c.JSON(http.StatusOK, filtersResponse{
		Schema:           snap.schema,
		DefaultSelection: snap.schema.DefaultSelection(),
	})
}

// Dashboard answers GET /api/v1/dashboard from query parameters.
func (s *Server) Dashboard(c echo.Context) error {
	snap := s.snapshot()
	return s.respond(c, snap, stateFromQuery(c, snap.schema), false)
}

// DashboardPost answers a JSON FilterState body.
func (s *Server) DashboardPost(c echo.Context) error {
	var state engine.FilterState
	if err := json.NewDecoder(c.Request().Body).Decode(&state); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filter state: "+err.Error())
	}
	return s.respond(c, s.snapshot(), state, false)
}

// DashboardView answers with the render-ready cards, charts and table.
func (s *Server) DashboardView(c echo.Context) error {
	snap := s.snapshot()
	return s.respond(c, snap, stateFromQuery(c, snap.schema), true)
}

func (s *Server) ReloadDataset(c echo.Context) error {
	ds, err := s.Reload(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reloadResponse{
		Version:   ds.Version().String(),
		Records:   ds.Len(),
		Anomalies: ds.Stats(),
	})
}

func (s *Server) respond(c echo.Context, snap *snapshot, state engine.FilterState, view bool) error {
	bundle, err := snap.engine.Query(state)
	if errors.Is(err, engine.ErrNoSelection) {
		c.Response().Header().Set(NoSelectionHeader, noSelectionMessage)
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if view {
		return c.JSON(http.StatusOK, snap.engine.View(bundle))
	}
	return c.JSON(http.StatusOK, bundle)
}

// stateFromQuery builds a FilterState from repeated or comma-separated
// parameters. An absent parameter selects every observed value; a present
// but empty one selects nothing.
func stateFromQuery(c echo.Context, cfg schema.Config) engine.FilterState {
	params := c.QueryParams()
	pick := func(param, dim string) []string {
		raw, ok := params[param]
		if !ok {
			return cfg.Values(dim)
		}
		var out []string
		for _, v := range raw {
			out = append(out, strings.Split(v, ",")...)
		}
		return out
	}

	var genders []appointment.Gender
	for _, g := range pick(ParamGender, engine.DimGender) {
		genders = append(genders, appointment.Gender(g))
	}
	return engine.NewFilterState(genders, pick(ParamAgeGroup, engine.DimAgeGroup), pick(ParamMonth, engine.DimMonth))
}
