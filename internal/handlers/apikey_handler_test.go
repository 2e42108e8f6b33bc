package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/middleware"
	"budgetbook/internal/models"
	"budgetbook/internal/services"
)

const testKeyID = "0190b6a4-0000-7000-8000-0000000000d1"

// --- mock api key service ---

type mockAPIKeyService struct {
	createAPIKeyFn       func(userID, name, prefix, tokenHash string) (*models.APIKey, error)
	listAPIKeysFn        func(userID string) ([]models.APIKey, error)
	deleteAPIKeyFn       func(userID, keyID string) error
	authenticateAPIKeyFn func(tokenHash string) (*models.APIKey, error)
}

func (m *mockAPIKeyService) CreateAPIKey(_ context.Context, userID, name, prefix, tokenHash string) (*models.APIKey, error) {
	if m.createAPIKeyFn != nil {
		return m.createAPIKeyFn(userID, name, prefix, tokenHash)
	}
	return &models.APIKey{Base: models.Base{ID: testKeyID}, UserID: userID, Name: name, Prefix: prefix, TokenHash: tokenHash}, nil
}

func (m *mockAPIKeyService) ListAPIKeys(_ context.Context, userID string) ([]models.APIKey, error) {
	if m.listAPIKeysFn != nil {
		return m.listAPIKeysFn(userID)
	}
	return []models.APIKey{}, nil
}

func (m *mockAPIKeyService) DeleteAPIKey(_ context.Context, userID, keyID string) error {
	if m.deleteAPIKeyFn != nil {
		return m.deleteAPIKeyFn(userID, keyID)
	}
	return nil
}

func (m *mockAPIKeyService) AuthenticateAPIKey(_ context.Context, tokenHash string) (*models.APIKey, error) {
	if m.authenticateAPIKeyFn != nil {
		return m.authenticateAPIKeyFn(tokenHash)
	}
	return nil, apperrors.ErrInvalidAPIKey
}

var _ services.APIKeyServicer = (*mockAPIKeyService)(nil)

func setupAPIKeyRouter(handler *APIKeyHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/api-keys", handler.GetAPIKeys)
	auth.POST("/api-keys", handler.CreateAPIKey)
	auth.DELETE("/api-keys/:keyId", handler.DeleteAPIKey)
	return r
}

func TestAPIKeyHandler_CreateAPIKey(t *testing.T) {
	t.Run("returns the token once and stores its hash", func(t *testing.T) {
		var gotPrefix, gotHash string
		svc := &mockAPIKeyService{
			createAPIKeyFn: func(userID, name, prefix, tokenHash string) (*models.APIKey, error) {
				if userID != testUserID {
					t.Errorf("expected caller %s, got %s", testUserID, userID)
				}
				gotPrefix, gotHash = prefix, tokenHash
				return &models.APIKey{Base: models.Base{ID: testKeyID}, UserID: userID, Name: name, Prefix: prefix, TokenHash: tokenHash}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAPIKeyRouter(NewAPIKeyHandler(svc, audit))

		rec := doRequest(r, "POST", "/api-keys", `{"name":"claude desktop"}`)

		assertStatus(t, rec, http.StatusCreated)
		body := parseJSON(t, rec)
		token, _ := body["token"].(string)
		if !strings.HasPrefix(token, middleware.APIKeyMarker) {
			t.Fatalf("expected a %s token, got %q", middleware.APIKeyMarker, token)
		}
		if gotHash != middleware.HashToken(token) {
			t.Error("expected the service to receive the token hash")
		}
		if !strings.HasPrefix(token, gotPrefix) {
			t.Errorf("prefix %q does not match token", gotPrefix)
		}

		key := body["api_key"].(map[string]interface{})
		if key["prefix"] != gotPrefix || key["name"] != "claude desktop" {
			t.Errorf("unexpected key in response: %v", key)
		}
		if _, leaked := key["token_hash"]; leaked {
			t.Error("token hash must not be serialized")
		}
		if strings.Contains(rec.Body.String(), gotHash) {
			t.Error("response must not contain the hash")
		}

		if got := audit.actions(); len(got) != 1 || got[0] != "CREATE_API_KEY" {
			t.Errorf("expected CREATE_API_KEY audit entry, got %v", got)
		}
		if _, logged := audit.entries[0].changes["token"]; logged {
			t.Error("audit entry must not contain the token")
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		r := setupAPIKeyRouter(NewAPIKeyHandler(&mockAPIKeyService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/api-keys", `{}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on long name", func(t *testing.T) {
		r := setupAPIKeyRouter(NewAPIKeyHandler(&mockAPIKeyService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/api-keys", `{"name":"`+strings.Repeat("k", 101)+`"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestAPIKeyHandler_GetAPIKeys(t *testing.T) {
	t.Run("lists the caller's keys", func(t *testing.T) {
		svc := &mockAPIKeyService{
			listAPIKeysFn: func(userID string) ([]models.APIKey, error) {
				if userID != testUserID {
					t.Errorf("expected caller %s, got %s", testUserID, userID)
				}
				return []models.APIKey{{Base: models.Base{ID: testKeyID}, Name: "cli", Prefix: "bbk_abcdefgh", TokenHash: "secret"}}, nil
			},
		}
		r := setupAPIKeyRouter(NewAPIKeyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/api-keys", "")

		assertStatus(t, rec, http.StatusOK)
		keys := parseJSON(t, rec)["api_keys"].([]interface{})
		if len(keys) != 1 {
			t.Fatalf("expected 1 key, got %d", len(keys))
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Error("token hash must not be serialized")
		}
	})

	t.Run("returns 500 on service error", func(t *testing.T) {
		svc := &mockAPIKeyService{
			listAPIKeysFn: func(string) ([]models.APIKey, error) {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, context.Canceled)
			},
		}
		r := setupAPIKeyRouter(NewAPIKeyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/api-keys", "")

		assertStatus(t, rec, http.StatusInternalServerError)
	})
}

func TestAPIKeyHandler_DeleteAPIKey(t *testing.T) {
	t.Run("revokes and audits", func(t *testing.T) {
		var gotKeyID string
		svc := &mockAPIKeyService{
			deleteAPIKeyFn: func(_, keyID string) error {
				gotKeyID = keyID
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupAPIKeyRouter(NewAPIKeyHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/api-keys/"+testKeyID, "")

		assertStatus(t, rec, http.StatusOK)
		if gotKeyID != testKeyID {
			t.Errorf("expected key %s, got %s", testKeyID, gotKeyID)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "DELETE_API_KEY" {
			t.Errorf("expected DELETE_API_KEY audit entry, got %v", got)
		}
	})

	t.Run("returns 404 for unknown key", func(t *testing.T) {
		svc := &mockAPIKeyService{
			deleteAPIKeyFn: func(string, string) error { return apperrors.ErrAPIKeyNotFound },
		}
		audit := &mockAuditService{}
		r := setupAPIKeyRouter(NewAPIKeyHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/api-keys/"+testKeyID, "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "API_KEY_NOT_FOUND")
		if len(audit.actions()) != 0 {
			t.Error("expected no audit entry")
		}
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupAPIKeyRouter(NewAPIKeyHandler(&mockAPIKeyService{}, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/api-keys/nope", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}
