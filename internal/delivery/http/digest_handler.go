package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pulseai/internal/digest"
	"pulseai/internal/dto"
	"pulseai/internal/entity"
	"pulseai/internal/repository"
	"pulseai/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// DigestHandler handles HTTP requests for digests.
type DigestHandler struct {
	composer   *digest.Composer
	digestRepo repository.DigestRepository
	feedback   *digest.FeedbackAnalyzer
	logger     *logger.Logger
}

// NewDigestHandler creates a new DigestHandler.
func NewDigestHandler(composer *digest.Composer, digestRepo repository.DigestRepository, feedback *digest.FeedbackAnalyzer, log *logger.Logger) *DigestHandler {
	return &DigestHandler{composer: composer, digestRepo: digestRepo, feedback: feedback, logger: log}
}

// RegisterRoutes registers the digest routes to the Echo group.
func (h *DigestHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.GenerateDigest)
	g.GET("", h.ListDigests)
	g.GET("/feedback-report", h.FeedbackReport)
	g.POST("/:id/mutate", h.MutateDigest)
	g.POST("/:id/feedback", h.AddFeedback)
}

// GenerateDigest godoc
// @Summary Generate a digest
// @Description Generate a personalized digest for a user
// @Tags digests
// @Accept  json
// @Produce  json
// @Param   request  body    dto.GenerateDigestRequest   true    "Digest request"
// @Success 201 {object} dto.DigestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /digests [post]
func (h *DigestHandler) GenerateDigest(c echo.Context) error {
	var req dto.GenerateDigestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid request payload"})
	}
	if req.UserID <= 0 {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "user_id is required"})
	}

	generated, err := h.composer.Generate(c.Request().Context(), digest.Request{
		UserID:             req.UserID,
		Category:           req.Category,
		Style:              req.Style,
		Length:             req.Length,
		Period:             time.Duration(req.PeriodHours) * time.Hour,
		Limit:              req.Limit,
		MinImportance:      req.MinImportance,
		Audience:           req.Audience,
		UseUserPreferences: req.UseUserPreferences,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.NewDigestResponse(generated))
}

// ListDigests godoc
// @Summary List digests
// @Description List a user's digests by lifecycle filter
// @Tags digests
// @Produce  json
// @Param   user_id  query   int     true    "User ID"
// @Param   filter   query   string  false   "active|archived|deleted|all"
// @Param   limit    query   int     false   "Page size"
// @Param   offset   query   int     false   "Page offset"
// @Success 200 {array} dto.DigestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /digests [get]
func (h *DigestHandler) ListDigests(c echo.Context) error {
	userID, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid user_id"})
	}

	filter := entity.DigestFilter(c.QueryParam("filter"))
	if filter == "" {
		filter = entity.DigestFilterActive
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	digests, err := h.digestRepo.ListByUser(c.Request().Context(), userID, filter, limit, offset)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]dto.DigestResponse, 0, len(digests))
	for i := range digests {
		out = append(out, dto.NewDigestResponse(&digests[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// FeedbackReport godoc
// @Summary Feedback analysis report
// @Description Correlate digest parameters with user ratings over the last week
// @Tags digests
// @Produce  json
// @Param   user_id                query   int      true    "User ID"
// @Param   importance_threshold   query   number   false   "Current importance threshold"
// @Param   credibility_threshold  query   number   false   "Current credibility threshold"
// @Success 200 {object} dto.FeedbackReportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /digests/feedback-report [get]
func (h *DigestHandler) FeedbackReport(c echo.Context) error {
	userID, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid user_id"})
	}

	baseImportance := parseFloatDefault(c.QueryParam("importance_threshold"), 0.5)
	baseCredibility := parseFloatDefault(c.QueryParam("credibility_threshold"), 0.5)

	report, err := h.feedback.Analyze(c.Request().Context(), userID, baseImportance, baseCredibility)
	if errors.Is(err, digest.ErrInsufficientData) {
		return c.JSON(http.StatusOK, dto.FeedbackReportResponse{Status: "insufficient_data"})
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.FeedbackReportResponse{Status: "ok", Report: report})
}

func parseFloatDefault(raw string, def float64) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// MutateDigest godoc
// @Summary Mutate a digest
// @Description Apply archive/unarchive/soft_delete/restore to a digest
// @Tags digests
// @Accept  json
// @Produce  json
// @Param   id       path    int                        true    "Digest ID"
// @Param   request  body    dto.MutateDigestRequest    true    "Operation"
// @Success 200 {object} dto.MutateDigestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /digests/{id}/mutate [post]
func (h *DigestHandler) MutateDigest(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid digest ID"})
	}

	var req dto.MutateDigestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid request payload"})
	}

	owned, err := h.ownedDigest(c, uint(id), req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	if owned == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Digest not found"})
	}

	mutated, err := h.digestRepo.Mutate(c.Request().Context(), uint(id), entity.DigestOp(req.Op))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.MutateDigestResponse{Success: true, Digest: dto.NewDigestResponse(mutated)})
}

// AddFeedback godoc
// @Summary Rate a digest
// @Description Fold a user rating into the digest's running feedback mean
// @Tags digests
// @Accept  json
// @Produce  json
// @Param   id       path    int                  true    "Digest ID"
// @Param   request  body    dto.FeedbackRequest  true    "Rating"
// @Success 200 {object} dto.DigestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /digests/{id}/feedback [post]
func (h *DigestHandler) AddFeedback(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid digest ID"})
	}

	var req dto.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Invalid request payload"})
	}
	if req.Rating < 0 || req.Rating > 1 {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "rating must be within [0, 1]"})
	}

	owned, err := h.ownedDigest(c, uint(id), req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	if owned == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Kind: string(entity.KindValidation), Error: "Digest not found"})
	}

	updated, err := h.digestRepo.AddFeedback(c.Request().Context(), uint(id), req.Rating)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewDigestResponse(updated))
}

// ownedDigest loads a digest and checks ownership; nil means not found or not
// owned by the requesting user.
func (h *DigestHandler) ownedDigest(c echo.Context, id uint, userID int64) (*entity.Digest, error) {
	d, err := h.digestRepo.Get(c.Request().Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, nil
	}
	return d, nil
}
