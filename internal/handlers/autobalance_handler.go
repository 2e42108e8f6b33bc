package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/allocation"
	"budgetbook/internal/services"
)

// AutoBalanceHandler handles the auto-balance configuration of a budget.
type AutoBalanceHandler struct {
	autoBalanceService services.AutoBalanceServicer
	auditService       services.AuditServicer
}

// NewAutoBalanceHandler creates a new AutoBalanceHandler.
func NewAutoBalanceHandler(autoBalanceService services.AutoBalanceServicer, auditService services.AuditServicer) *AutoBalanceHandler {
	return &AutoBalanceHandler{autoBalanceService: autoBalanceService, auditService: auditService}
}

// AutoBalanceSourceRequest is one weighted source budget.
type AutoBalanceSourceRequest struct {
	SourceBudgetID string `json:"source_budget_id" binding:"required,uuid"`
	Weight         int    `json:"weight" binding:"gte=0,lte=100"`
}

// UpdateAutoBalanceRequest replaces a budget's auto-balance configuration.
type UpdateAutoBalanceRequest struct {
	Enabled bool                       `json:"enabled"`
	Sources []AutoBalanceSourceRequest `json:"sources" binding:"dive"`
}

// GetAutoBalance returns the auto-balance configuration of a budget.
// @Summary     Get auto-balance configuration
// @Tags        auto-balance
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.AutoBalanceConfig "Configuration"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/auto-balance [get]
func (h *AutoBalanceHandler) GetAutoBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	cfg, err := h.autoBalanceService.GetConfig(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auto_balance": cfg})
}

// UpdateAutoBalance replaces the auto-balance configuration of a budget.
// @Summary     Update auto-balance configuration
// @Description Replace the enabled flag and the weighted source budgets
// @Tags        auto-balance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Budget ID"
// @Param       request body UpdateAutoBalanceRequest true "Configuration"
// @Success     200 {object} services.AutoBalanceConfig "Updated configuration"
// @Failure     400 {object} ErrorResponse "Invalid configuration"
// @Failure     403 {object} ErrorResponse "Not a member of a referenced budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/auto-balance [put]
func (h *AutoBalanceHandler) UpdateAutoBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAutoBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	sources := make([]allocation.WeightedSource, len(req.Sources))
	for i, s := range req.Sources {
		sources[i] = allocation.WeightedSource{BudgetID: s.SourceBudgetID, Weight: s.Weight}
	}

	cfg, err := h.autoBalanceService.UpdateConfig(c.Request.Context(), userID, budgetID, req.Enabled, sources)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_AUTO_BALANCE", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"enabled": cfg.Enabled, "sources": len(cfg.Sources)})

	c.JSON(http.StatusOK, gin.H{"auto_balance": cfg})
}
