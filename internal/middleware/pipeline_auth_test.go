package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const pipelineKey = "payroll-cron-key"

// setupPayrollPipeline mounts the payroll hooks the way the server does and
// counts how many requests reach them.
func setupPayrollPipeline(apiKey string, reached *int) *gin.Engine {
	r := gin.New()
	pipeline := r.Group("/pipeline", PipelineAuthMiddleware(apiKey))
	run := func(c *gin.Context) {
		*reached++
		c.JSON(http.StatusOK, gin.H{"payroll": gin.H{"posted": 0}})
	}
	pipeline.POST("/payroll/run", run)
	pipeline.POST("/budgets/:id/payroll", run)
	return r
}

func postPipeline(r *gin.Engine, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.RemoteAddr = "203.0.113.7:4321"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func assertPipelineError(t *testing.T, rec *httptest.ResponseRecorder, want *apperrors.AppError) {
	t.Helper()
	if rec.Code != want.StatusCode {
		t.Errorf("status = %d, want %d", rec.Code, want.StatusCode)
	}
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if code, _ := errObj["code"].(string); code != want.Code {
		t.Errorf("error code = %q, want %q", code, want.Code)
	}
	if msg, _ := errObj["message"].(string); msg != want.Message {
		t.Errorf("error message = %q, want %q", msg, want.Message)
	}
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	logger.Set(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Set(zap.NewNop().Sugar()) })
	return logs
}

func TestPipelineAuthMiddleware(t *testing.T) {
	paths := []string{"/pipeline/payroll/run", "/pipeline/budgets/0190a1b2-0000-7000-8000-000000000001/payroll"}

	t.Run("valid_key_reaches_payroll_run", func(t *testing.T) {
		logs := observeLogs(t)
		var reached int
		r := setupPayrollPipeline(pipelineKey, &reached)

		for _, path := range paths {
			rec := postPipeline(r, path, pipelineKey)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: status = %d, want 200", path, rec.Code)
			}
		}
		if reached != len(paths) {
			t.Errorf("expected %d runs, got %d", len(paths), reached)
		}
		if logs.Len() != 0 {
			t.Errorf("expected no rejection logs, got %d", logs.Len())
		}
	})

	t.Run("disabled_without_configured_key", func(t *testing.T) {
		logs := observeLogs(t)
		var reached int
		r := setupPayrollPipeline("", &reached)

		for _, key := range []string{"", "anything"} {
			rec := postPipeline(r, "/pipeline/payroll/run", key)
			assertPipelineError(t, rec, apperrors.ErrPipelineNotConfigured)
		}
		if reached != 0 {
			t.Errorf("expected payroll not to run, got %d runs", reached)
		}
		if logs.Len() != 0 {
			t.Errorf("expected a disabled pipeline not to log rejections, got %d", logs.Len())
		}
	})

	rejected := []struct {
		name string
		key  string
	}{
		{name: "wrong_key", key: "wrong-key"},
		{name: "missing_key", key: ""},
		{name: "prefix_of_key", key: "payroll-cron"},
		{name: "key_with_suffix", key: pipelineKey + "x"},
	}
	for _, tt := range rejected {
		t.Run("rejects_"+tt.name, func(t *testing.T) {
			logs := observeLogs(t)
			var reached int
			r := setupPayrollPipeline(pipelineKey, &reached)

			rec := postPipeline(r, "/pipeline/payroll/run", tt.key)

			assertPipelineError(t, rec, apperrors.ErrInvalidAPIKey)
			if reached != 0 {
				t.Errorf("expected payroll not to run, got %d runs", reached)
			}
			entries := logs.FilterMessage("rejected pipeline request").All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 rejection log, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["path"] != "/pipeline/payroll/run" {
				t.Errorf("expected path field, got %v", fields["path"])
			}
			if fields["client_ip"] != "203.0.113.7" {
				t.Errorf("expected client_ip field, got %v", fields["client_ip"])
			}
		})
	}
}
