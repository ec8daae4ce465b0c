package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go.ngs.io/regrid/internal/adapter/store"
	"go.ngs.io/regrid/internal/domain"
	"go.ngs.io/regrid/internal/usecase"
)

// Handler handles HTTP requests for regridding operations.
type Handler struct {
	regridUC *usecase.RegridUseCase
	log      logrus.FieldLogger
}

// NewHandler creates a new HTTP handler.
func NewHandler(regridUC *usecase.RegridUseCase, log logrus.FieldLogger) *Handler {
	return &Handler{
		regridUC: regridUC,
		log:      log,
	}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListGrids handles GET /v1/grids.
func (h *Handler) ListGrids(c *gin.Context) {
	names, err := h.regridUC.Grids()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"grids": names,
		"count": len(names),
	})
}

// Regrid handles POST /v1/regrid.
func (h *Handler) Regrid(c *gin.Context) {
	var req usecase.RegridRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Regrid(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": resp})
}

// Fill handles POST /v1/fill.
func (h *Handler) Fill(c *gin.Context) {
	var req usecase.FillRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Fill(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SliceCoefficients handles POST /v1/slice/coefficients.
func (h *Handler) SliceCoefficients(c *gin.Context) {
	var req usecase.SliceRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Slice(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Topo handles POST /v1/topo.
func (h *Handler) Topo(c *gin.Context) {
	var req usecase.TopoRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Topo(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Convert handles POST /v1/convert.
func (h *Handler) Convert(c *gin.Context) {
	var req usecase.ConvertRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Convert(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": resp})
}

// Boundary handles POST /v1/boundary.
func (h *Handler) Boundary(c *gin.Context) {
	var req usecase.BoundaryRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.regridUC.Boundary(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// fail writes err with the status for its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		usage    *domain.UsageError
		conflict *domain.ConflictingConfigError
		bounds   *domain.OutOfBoundsError
		converge *domain.ConvergenceError
	)
	switch {
	case errors.As(err, &converge):
		return http.StatusUnprocessableEntity
	case errors.As(err, &usage), errors.As(err, &conflict), errors.As(err, &bounds):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
