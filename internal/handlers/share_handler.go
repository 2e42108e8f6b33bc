package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/services"
)

// ShareHandler handles budget membership requests.
type ShareHandler struct {
	shareService services.ShareServicer
	auditService services.AuditServicer
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(shareService services.ShareServicer, auditService services.AuditServicer) *ShareHandler {
	return &ShareHandler{shareService: shareService, auditService: auditService}
}

// ShareRequest names the user to add to or remove from a budget.
type ShareRequest struct {
	Email string `json:"email" form:"email" binding:"required,email,max=255"`
}

// GetMembers lists the users who can access a budget.
// @Summary     List budget members
// @Tags        shares
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {array}  services.Member "Members ordered by email"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/shares [get]
func (h *ShareHandler) GetMembers(c *gin.Context) {
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

	members, err := h.shareService.ListMembers(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember shares a budget with an existing user.
// @Summary     Share a budget
// @Description Give an existing user access to the budget
// @Tags        shares
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Budget ID"
// @Param       request body ShareRequest true "User to add"
// @Success     201 {object} services.Member "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /budgets/{id}/shares [post]
func (h *ShareHandler) AddMember(c *gin.Context) {
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

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	member, err := h.shareService.AddMember(c.Request.Context(), userID, budgetID, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_BUDGET_MEMBER", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"member_id": member.UserID})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// RemoveMember revokes a user's access to a budget. The email may be sent
// in the body or as the email query parameter.
// @Summary     Unshare a budget
// @Description Remove a member; the last member cannot be removed
// @Tags        shares
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Budget ID"
// @Param       email query string false "Member email"
// @Success     200 {object} map[string]string "Member removed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget or member not found"
// @Failure     409 {object} ErrorResponse "Last member"
// @Router      /budgets/{id}/shares [delete]
func (h *ShareHandler) RemoveMember(c *gin.Context) {
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

	var req ShareRequest
	if c.Query("email") != "" {
		err = c.ShouldBindQuery(&req)
	} else if c.Request.ContentLength > 0 {
		err = c.ShouldBindJSON(&req)
	} else {
		err = apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	if err := h.shareService.RemoveMember(c.Request.Context(), userID, budgetID, req.Email); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_BUDGET_MEMBER", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"email": req.Email})

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
