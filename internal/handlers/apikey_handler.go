package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/middleware"
	"budgetbook/internal/models"
	"budgetbook/internal/services"
)

// APIKeyHandler lets users manage the keys scripts and tool clients use.
type APIKeyHandler struct {
	apiKeyService services.APIKeyServicer
	auditService  services.AuditServicer
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(apiKeyService services.APIKeyServicer, auditService services.AuditServicer) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService, auditService: auditService}
}

// CreateAPIKeyRequest represents the request payload for creating an API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateAPIKeyResponse carries the new key. Token is only ever returned here.
type CreateAPIKeyResponse struct {
	APIKey *models.APIKey `json:"api_key"`
	Token  string         `json:"token"`
}

// GetAPIKeys lists the caller's API keys.
// @Summary     List API keys
// @Description List the caller's API keys; only the prefix of each token is shown
// @Tags        api-keys
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.APIKey "API keys"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /api-keys [get]
func (h *APIKeyHandler) GetAPIKeys(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	keys, err := h.apiKeyService.ListAPIKeys(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

// CreateAPIKey issues a new API key.
// @Summary     Create an API key
// @Description Issue a key for scripts and the MCP endpoint. The token is shown once.
// @Tags        api-keys
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAPIKeyRequest true "Key name"
// @Success     201 {object} CreateAPIKeyResponse "Key created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /api-keys [post]
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	token, prefix, err := middleware.GenerateAPIKey()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	key, err := h.apiKeyService.CreateAPIKey(c.Request.Context(), userID, req.Name, prefix, middleware.HashToken(token))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_API_KEY", "api_key", key.ID, c.ClientIP(),
		map[string]interface{}{"name": key.Name, "prefix": key.Prefix})

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{APIKey: key, Token: token})
}

// DeleteAPIKey revokes one of the caller's API keys.
// @Summary     Delete an API key
// @Description Revoke an API key; requests using it fail from then on
// @Tags        api-keys
// @Produce     json
// @Security    BearerAuth
// @Param       keyId path string true "API key ID"
// @Success     200 {object} map[string]string "Key deleted"
// @Failure     400 {object} ErrorResponse "Invalid key ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Key not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /api-keys/{keyId} [delete]
func (h *APIKeyHandler) DeleteAPIKey(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	keyID, err := parsePathID(c, "keyId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.apiKeyService.DeleteAPIKey(c.Request.Context(), userID, keyID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_API_KEY", "api_key", keyID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}
