package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
)

// APIKeyMarker starts every user API key so it can be told apart from a JWT.
const APIKeyMarker = "bbk_"

const (
	apiKeyEntropy   = 32
	apiKeyPrefixLen = 8
)

// APIKeyAuthenticator resolves a token hash to the key it belongs to.
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, tokenHash string) (*models.APIKey, error)
}

// GenerateAPIKey returns a fresh token and the prefix shown to the user in
// listings. Only HashToken(token) should be persisted.
func GenerateAPIKey() (token, prefix string, err error) {
	raw := make([]byte, apiKeyEntropy)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return APIKeyMarker + encoded, APIKeyMarker + encoded[:apiKeyPrefixLen], nil
}

func apiKeyFromRequest(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// APIKeyMiddleware authenticates requests carrying a user API key in the
// X-API-Key header or as a bearer token. The key owner's ID is set as
// "userID" and the key's ID as "apiKeyID".
func APIKeyMiddleware(keys APIKeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := apiKeyFromRequest(c)
		if !strings.HasPrefix(token, APIKeyMarker) {
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		hash := HashToken(token)
		key, err := keys.AuthenticateAPIKey(c.Request.Context(), hash)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode >= http.StatusInternalServerError {
				logger.Get().Errorw("api key lookup failed", "error", err)
				abortWithAppError(c, apperrors.ErrInternalServer)
				return
			}
			logger.Get().Warnw("rejected api key",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		if subtle.ConstantTimeCompare([]byte(key.TokenHash), []byte(hash)) != 1 {
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Set("userID", key.UserID)
		c.Set("apiKeyID", key.ID)
		c.Next()
	}
}
