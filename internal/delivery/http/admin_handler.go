package http

import (
	"net/http"
	"time"

	"pulseai/internal/dto"
	"pulseai/internal/entity"
	"pulseai/internal/ingest"
	"pulseai/internal/prefilter"
	"pulseai/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminHandler exposes the operational endpoints: on-demand ingestion,
// rejection analysis and rule application.
type AdminHandler struct {
	pipeline *ingest.Pipeline
	registry *entity.SourceRegistry
	analyzer *prefilter.Analyzer
	rules    *prefilter.Manager
	logger   *logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	pipeline *ingest.Pipeline,
	registry *entity.SourceRegistry,
	analyzer *prefilter.Analyzer,
	rules *prefilter.Manager,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		pipeline: pipeline,
		registry: registry,
		analyzer: analyzer,
		rules:    rules,
		logger:   log,
	}
}

// RegisterRoutes registers the admin routes to the Echo group.
func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/ingestion/run", h.RunIngestion)
	g.POST("/rejection-analysis/run", h.RunRejectionAnalysis)
	g.POST("/rules/apply", h.ApplyRuleRecommendations)
}

// RunIngestion godoc
// @Summary Run ingestion
// @Description Run the ingestion pipeline, optionally narrowed to categories
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   request  body    dto.RunIngestionRequest  false    "Run options"
// @Success 200 {object} dto.RunIngestionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/ingestion/run [post]
func (h *AdminHandler) RunIngestion(c echo.Context) error {
	var req dto.RunIngestionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid request payload"})
	}

	sources := h.registry.All()
	if len(req.Categories) > 0 {
		sources = h.registry.ByCategories(req.Categories)
	}
	if len(sources) == 0 {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "no sources match the requested categories"})
	}

	stats := h.pipeline.RunWithOverrides(c.Request().Context(), sources, ingest.RunOverrides{
		PerSourceLimit: req.PerSourceLimit,
	})

	return c.JSON(http.StatusOK, dto.RunIngestionResponse{
		Sources:    stats.Sources,
		Fetched:    stats.Fetched,
		Saved:      stats.Saved,
		Duplicates: stats.Duplicates,
		Rejected:   stats.Rejected,
		Failed:     stats.Failed,
	})
}

// RunRejectionAnalysis godoc
// @Summary Run rejection analysis
// @Description Analyze the rejection log and return the report
// @Tags admin
// @Produce  json
// @Success 200 {object} entity.AnalysisReport
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/rejection-analysis/run [post]
func (h *AdminHandler) RunRejectionAnalysis(c echo.Context) error {
	report, err := h.analyzer.Analyze(time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// ApplyRuleRecommendations godoc
// @Summary Apply rule recommendations
// @Description Apply an analysis report to the prefilter rule set
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   report  body    entity.AnalysisReport  false    "Report; omitted runs a fresh analysis"
// @Success 200 {object} prefilter.ApplyResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/rules/apply [post]
func (h *AdminHandler) ApplyRuleRecommendations(c echo.Context) error {
	var report entity.AnalysisReport
	if err := c.Bind(&report); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid report payload"})
	}

	if report.Empty() {
		fresh, err := h.analyzer.Analyze(time.Now().UTC())
		if err != nil {
			return writeError(c, err)
		}
		report = *fresh
	}

	result, err := h.rules.Apply(&report, time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
