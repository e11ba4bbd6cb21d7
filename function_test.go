package cloudfunctions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Set up test environment variables
	os.Setenv("GEMINI_API_KEY", "test-gemini-key")
	os.Setenv("WEBHOOK_AUTH_TOKEN", "test-webhook-token")
	os.Setenv("CACHE_TYPE", "memory")
	os.Setenv("CACHE_DURATION_HOURS", "1")
	os.Unsetenv("ARCHIVE_BUCKET")
	os.Unsetenv("SLACK_BOT_TOKEN")
	os.Unsetenv("PIPELINE_CONFIG")

	// Run tests
	code := m.Run()

	// Clean up
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("WEBHOOK_AUTH_TOKEN")
	os.Unsetenv("CACHE_TYPE")
	os.Unsetenv("CACHE_DURATION_HOURS")

	os.Exit(code)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return response
}

func TestRunPipelineHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	response := decode(t, w)
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%v'", response["status"])
	}
}

func TestRunPipelineInvalidRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/invalid/route", nil)
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestRunPipelineCacheStats(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	data, ok := decode(t, w)["data"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected 'data' object in response")
	}

	for _, field := range []string{"total_entries", "hit_count", "miss_count"} {
		if _, ok := data[field]; !ok {
			t.Errorf("Expected '%s' field in cache stats", field)
		}
	}
}

func TestRunPipelineRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", strings.NewReader(`{"topic":"Go"}`))
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRunPipelineEmptyTopic(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", strings.NewReader(`{"topic":""}`))
	req.Header.Set("Authorization", "Bearer test-webhook-token")
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	if decode(t, w)["status"] != "error" {
		t.Error("Expected error status")
	}
}

func TestRunPipelineConfigEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	w := httptest.NewRecorder()

	RunPipeline(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	data, ok := decode(t, w)["data"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected 'data' object in response")
	}

	// Should contain config information but not sensitive data
	if data["cache_type"] != "memory" {
		t.Errorf("Expected cache_type 'memory', got '%v'", data["cache_type"])
	}

	if strings.Contains(w.Body.String(), "test-gemini-key") {
		t.Error("Config response should not contain the Gemini API key")
	}

	if strings.Contains(w.Body.String(), "test-webhook-token") {
		t.Error("Config response should not contain the webhook token")
	}
}

// Benchmark tests

func BenchmarkRunPipelineHealthCheck(b *testing.B) {
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		RunPipeline(w, req)

		if w.Code != http.StatusOK {
			b.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
	}
}
