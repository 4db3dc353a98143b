package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/auxset"
	"github.com/spigell/matchboard/internal/catalog"
	"github.com/spigell/matchboard/internal/engine"
	"github.com/spigell/matchboard/internal/filtering"
	"github.com/spigell/matchboard/internal/logger"
	"github.com/spigell/matchboard/internal/observability"
	"github.com/spigell/matchboard/internal/scoring"
	"github.com/spigell/matchboard/internal/surface"
	"github.com/spigell/matchboard/internal/viewmode"
)

// ComputeRequest is the body of POST /v1/surfaces/:surface/compute.
type ComputeRequest struct {
	Pool      []*catalog.Entity  `json:"pool"`
	Criteria  filtering.Criteria `json:"criteria"`
	Viewer    []string           `json:"viewer" binding:"omitempty,max=200"`
	Mode      string             `json:"mode" binding:"omitempty,max=64"`
	Saved     []string           `json:"saved"`
	Contacted []string           `json:"contacted"`
	ViewerID  string             `json:"viewer_id" binding:"omitempty,max=128"`
}

type ComputeResponse struct {
	engine.VisibleList
	IDs []string `json:"ids"`
}

type SurfaceInfo struct {
	Name       string               `json:"name"`
	Default    viewmode.Mode        `json:"default_mode"`
	Modes      []viewmode.Mode      `json:"modes"`
	Categories []filtering.Category `json:"categories"`
	Scoring    scoring.Config       `json:"scoring"`
}

type SetsResponse struct {
	Viewer    string   `json:"viewer"`
	Saved     []string `json:"saved"`
	Contacted []string `json:"contacted"`
}

type ToggleRequest struct {
	ID string `json:"id" binding:"required,max=256"`
}

type ToggleResponse struct {
	SetsResponse
	Set    auxset.Name `json:"set"`
	ID     string      `json:"id"`
	Member bool        `json:"member"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listSurfaces(c *gin.Context) {
	names := s.surfaces.Names()
	out := make([]SurfaceInfo, 0, len(names))
	for _, name := range names {
		cfg, err := s.surfaces.Get(name)
		if err != nil {
			continue
		}
		out = append(out, SurfaceInfo{
			Name:       name,
			Default:    cfg.Modes.Default,
			Modes:      cfg.Modes.Modes(),
			Categories: cfg.Filters.Categories,
			Scoring:    cfg.Scoring,
		})
	}
	c.JSON(http.StatusOK, gin.H{"surfaces": out})
}

func (s *Server) compute(c *gin.Context) {
	cfg, err := s.surfaces.Get(c.Param("surface"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	eng := s.engines[cfg.Surface]

	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	pool, err := s.requestPool(req.Pool)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	sets, err := s.requestSets(c, req)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	list := eng.Compute(engine.Input{
		Pool:     pool,
		Criteria: req.Criteria,
		Viewer:   req.Viewer,
		Mode:     viewmode.Mode(req.Mode),
		Sets:     sets,
	})

	c.JSON(http.StatusOK, ComputeResponse{VisibleList: list, IDs: list.IDs()})
}

// requestPool validates an inline pool, or falls back to the served catalog.
func (s *Server) requestPool(items []*catalog.Entity) ([]*catalog.Entity, error) {
	if items == nil {
		if s.pool == nil {
			return nil, nil
		}
		return s.pool.Items, nil
	}

	pool := &catalog.Pool{Items: items}
	if err := pool.Prepare(); err != nil {
		return nil, err
	}
	return pool.Items, nil
}

// requestSets uses explicit sets when given, otherwise the persisted sets of the viewer.
func (s *Server) requestSets(c *gin.Context, req ComputeRequest) (auxset.Sets, error) {
	if req.Saved != nil || req.Contacted != nil || req.ViewerID == "" {
		return auxset.Sets{Saved: auxset.New(req.Saved...), Contacted: auxset.New(req.Contacted...)}, nil
	}

	m, err := s.sets.Get(c.Request.Context(), req.ViewerID)
	if err != nil {
		return auxset.Sets{}, err
	}
	return m.Snapshot(), nil
}

func (s *Server) getSets(c *gin.Context) {
	m, err := s.sets.Get(c.Request.Context(), c.Param("viewer"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, setsResponse(m.Viewer(), m.Snapshot()))
}

func (s *Server) toggle(c *gin.Context) {
	name, err := auxset.ParseName(c.Param("set"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, err)
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	viewer := c.Param("viewer")
	m, err := s.sets.Get(c.Request.Context(), viewer)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	sets, err := m.Toggle(c.Request.Context(), name, req.ID)
	if err != nil {
		s.metrics.ObserveToggle(string(name), observability.ToggleError)
		s.logger.Error("toggle failed", append(logger.ViewerField(viewer), zap.Error(err))...)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	set, _ := sets.Get(name)
	member := set.Has(req.ID)
	result := observability.ToggleRemoved
	if member {
		result = observability.ToggleAdded
	}
	s.metrics.ObserveToggle(string(name), result)

	c.JSON(http.StatusOK, ToggleResponse{
		SetsResponse: setsResponse(viewer, sets),
		Set:          name,
		ID:           req.ID,
		Member:       member,
	})
}

func setsResponse(viewer string, sets auxset.Sets) SetsResponse {
	return SetsResponse{
		Viewer:    viewer,
		Saved:     sets.Saved.IDs(),
		Contacted: sets.Contacted.IDs(),
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	if errors.Is(err, surface.ErrUnknownSurface) || errors.Is(err, auxset.ErrUnknownSet) {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
