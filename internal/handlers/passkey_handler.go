package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/services"
)

// PasskeyHandler handles WebAuthn passkey registration and sign-in.
type PasskeyHandler struct {
	passkeyService services.PasskeyServicer
	auditService   services.AuditServicer
	tokens         *AuthHandler
}

// NewPasskeyHandler creates a new PasskeyHandler. Sign-ins issue the same
// token pair as password logins.
func NewPasskeyHandler(passkeyService services.PasskeyServicer, userService services.UserServicer, auditService services.AuditServicer) *PasskeyHandler {
	return &PasskeyHandler{
		passkeyService: passkeyService,
		auditService:   auditService,
		tokens:         NewAuthHandler(userService, auditService),
	}
}

// PasskeyLoginBeginResponse carries the assertion options for the browser.
type PasskeyLoginBeginResponse struct {
	SessionID string      `json:"session_id"`
	PublicKey interface{} `json:"publicKey"`
}

// GetPasskey returns the caller's registered passkey.
// @Summary     Get passkey
// @Description Get the caller's registered passkey
// @Tags        passkeys
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Passkey "Passkey"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No passkey registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /passkeys [get]
func (h *PasskeyHandler) GetPasskey(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pk, err := h.passkeyService.GetPasskey(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"passkey": pk})
}

// BeginRegistration starts registering a passkey for the caller.
// @Summary     Begin passkey registration
// @Description Returns PublicKeyCredentialCreationOptions for navigator.credentials.create
// @Tags        passkeys
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Creation options"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Passkey already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /passkeys/register/begin [post]
func (h *PasskeyHandler) BeginRegistration(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	opts, err := h.passkeyService.BeginRegistration(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, opts)
}

// FinishRegistration verifies the new credential and stores it.
// @Summary     Finish passkey registration
// @Description Verify the authenticator response and store the passkey
// @Tags        passkeys
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body object true "PublicKeyCredential from navigator.credentials.create"
// @Success     201 {object} models.Passkey "Passkey registered"
// @Failure     401 {object} ErrorResponse "Session expired or verification failed"
// @Failure     409 {object} ErrorResponse "Passkey already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /passkeys/register/finish [post]
func (h *PasskeyHandler) FinishRegistration(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pk, err := h.passkeyService.FinishRegistration(c.Request.Context(), userID, c.Request.Body)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REGISTER_PASSKEY", "passkey", pk.ID, c.ClientIP(),
		map[string]interface{}{"backup_eligible": pk.BackupEligible})

	c.JSON(http.StatusCreated, gin.H{"passkey": pk})
}

// DeletePasskey removes the caller's passkey.
// @Summary     Delete passkey
// @Description Remove the caller's passkey so another can be registered
// @Tags        passkeys
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Passkey deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No passkey registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /passkeys [delete]
func (h *PasskeyHandler) DeletePasskey(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.passkeyService.DeletePasskey(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_PASSKEY", "passkey", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Passkey deleted"})
}

// BeginLogin starts a passkey sign-in.
// @Summary     Begin passkey login
// @Description Returns a session ID and PublicKeyCredentialRequestOptions for navigator.credentials.get
// @Tags        auth
// @Produce     json
// @Success     200 {object} PasskeyLoginBeginResponse "Assertion options"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/passkeys/login/begin [post]
func (h *PasskeyHandler) BeginLogin(c *gin.Context) {
	sessionID, opts, err := h.passkeyService.BeginLogin(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PasskeyLoginBeginResponse{SessionID: sessionID, PublicKey: opts.Response})
}

// FinishLogin verifies a passkey assertion and issues tokens.
// @Summary     Finish passkey login
// @Description Verify the assertion; the body is the PublicKeyCredential plus session_id
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body object true "PublicKeyCredential from navigator.credentials.get with session_id"
// @Success     200 {object} AuthResponse "User authenticated and tokens generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Session expired or verification failed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/passkeys/login/finish [post]
func (h *PasskeyHandler) FinishLogin(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "session_id is required"))
		return
	}

	user, err := h.passkeyService.FinishLogin(c.Request.Context(), req.SessionID, bytes.NewReader(body))
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := h.tokens.issueTokens(c, user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, "PASSKEY_LOGIN", "user", user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, resp)
}
