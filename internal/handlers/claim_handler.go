package handlers

import (
	"net/http"

	"github.com/ArowuTest/healthclaims-backend/internal/claimfilter"
	"github.com/ArowuTest/healthclaims-backend/internal/middleware"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimHandler handles claim HTTP requests
type ClaimHandler struct {
	claimService services.ClaimService
	logger       *zap.Logger
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(claimService services.ClaimService, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{claimService: claimService, logger: logger}
}

// ListAll handles GET /api/claims
func (h *ClaimHandler) ListAll(c *gin.Context) {
	spec, err := claimfilter.ParseSpec(c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	claims, err := h.claimService.ListAll(c.Request.Context(), middleware.SessionFromContext(c), spec)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Data: claims, Count: len(claims)})
}

// ListByPatient handles GET /api/claims/:patientId
func (h *ClaimHandler) ListByPatient(c *gin.Context) {
	spec, err := claimfilter.ParseSpec(c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	claims, err := h.claimService.ListByPatient(c.Request.Context(), middleware.SessionFromContext(c), c.Param("patientId"), spec)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Data: claims, Count: len(claims)})
}

// Get handles GET /api/claims/detail/:claimId
func (h *ClaimHandler) Get(c *gin.Context) {
	claim, err := h.claimService.Get(c.Request.Context(), middleware.SessionFromContext(c), c.Param("claimId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// Stats handles GET /api/claims/stats
func (h *ClaimHandler) Stats(c *gin.Context) {
	stats, err := h.claimService.Stats(c.Request.Context(), middleware.SessionFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Submit handles POST /api/claims
func (h *ClaimHandler) Submit(c *gin.Context) {
	var req models.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	claim, err := h.claimService.Submit(c.Request.Context(), middleware.SessionFromContext(c), services.SubmitClaimInput{
		Amount:      req.Amount,
		Description: req.Description,
		Documents:   req.Documents,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, claim)
}

// Review handles PUT /api/claims/:claimId
func (h *ClaimHandler) Review(c *gin.Context) {
	var req models.ReviewClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	claim, err := h.claimService.Review(c.Request.Context(), middleware.SessionFromContext(c), c.Param("claimId"), services.ReviewInput{
		Decision:       req.Status,
		ApprovedAmount: req.ApprovedAmount,
		Comments:       req.Comments,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
