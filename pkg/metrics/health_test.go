package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("store", true, "ready")

	if len(healthChecker.components) != 1 {
		t.Errorf("expected 1 component, got %d", len(healthChecker.components))
	}

	comp := healthChecker.components["store"]
	if !comp.Healthy {
		t.Error("component should be healthy")
	}

	if comp.Message != "ready" {
		t.Errorf("expected message 'ready', got '%s'", comp.Message)
	}
}

func TestGetHealth_AllHealthy(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "1.0.0"

	RegisterComponent("controller-session", true, "")
	RegisterComponent("store", true, "")

	health := GetHealth()

	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", health.Status)
	}

	if len(health.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(health.Components))
	}

	if health.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", health.Version)
	}
}

func TestGetHealth_OneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("store", true, "")
	RegisterComponent("controller-session", false, "not connected")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}

	if health.Components["controller-session"] != "unhealthy: not connected" {
		t.Errorf("unexpected controller-session status: %s", health.Components["controller-session"])
	}
}

func TestGetHealth_StaleComponentDegradesWithoutFailing(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", true, "")
	stale := healthChecker.components["controller-session"]
	stale.Updated = time.Now().Add(-staleAfter - time.Second)
	healthChecker.components["controller-session"] = stale

	health := GetHealth()

	if health.Status != "degraded" {
		t.Errorf("expected status 'degraded', got '%s'", health.Status)
	}
	if health.Components["controller-session"][:len("degraded:")] != "degraded:" {
		t.Errorf("expected a degraded detail, got %q", health.Components["controller-session"])
	}
}

func TestGetHealth_UnhealthyOutranksStale(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", false, "login failed")
	stale := healthChecker.components["controller-session"]
	stale.Updated = time.Now().Add(-staleAfter - time.Second)
	healthChecker.components["controller-session"] = stale

	RegisterComponent("store", true, "")
	staleStore := healthChecker.components["store"]
	staleStore.Updated = time.Now().Add(-staleAfter - time.Second)
	healthChecker.components["store"] = staleStore

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy' to win over 'degraded', got '%s'", health.Status)
	}
}

func TestGetReadiness_AllReady(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", true, "")
	RegisterComponent("store", true, "")

	readiness := GetReadiness()

	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", readiness.Status)
	}
}

func TestGetReadiness_MissingCriticalComponent(t *testing.T) {
	resetHealthChecker()
	// controller-session and store not registered

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}

	if readiness.Message == "" {
		t.Error("expected message explaining why not ready")
	}
}

func TestGetReadiness_CriticalComponentUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", false, "login failed")
	RegisterComponent("store", true, "")

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}
}

func TestGetReadiness_StaleCriticalComponentNotReady(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", true, "")
	stale := healthChecker.components["controller-session"]
	stale.Updated = time.Now().Add(-staleAfter - time.Second)
	healthChecker.components["controller-session"] = stale
	RegisterComponent("store", true, "")

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("a stale critical component must fail readiness even though it last reported healthy, got '%s'", readiness.Status)
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "test"

	RegisterComponent("store", true, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler := HealthHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("expected healthy status, got %s", health.Status)
	}

	if health.Version != "test" {
		t.Errorf("expected version 'test', got %s", health.Version)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("store", false, "disk full")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler := HealthHandler()
	handler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if health.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", health.Status)
	}
}

func TestHealthHandler_DegradedStillServes200(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("store", true, "")
	stale := healthChecker.components["store"]
	stale.Updated = time.Now().Add(-staleAfter - time.Second)
	healthChecker.components["store"] = stale

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler := HealthHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("a degraded (not unhealthy) report should still return 200, got %d", w.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("controller-session", true, "")
	RegisterComponent("store", true, "")

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler := ReadyHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if readiness.Status != "ready" {
		t.Errorf("expected ready status, got %s", readiness.Status)
	}
}

func TestReadyHandler_NotReady(t *testing.T) {
	resetHealthChecker()
	// controller-session and store not registered

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler := ReadyHandler()
	handler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if readiness.Status != "not_ready" {
		t.Errorf("expected not_ready status, got %s", readiness.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealthChecker()

	req := httptest.NewRequest("GET", "/live", nil)
	w := httptest.NewRecorder()

	handler := LivenessHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["status"] != "alive" {
		t.Errorf("expected status 'alive', got '%s'", response["status"])
	}

	if response["uptime"] == "" {
		t.Error("uptime should not be empty")
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("store", true, "ok")
	UpdateComponent("store", false, "disk full")

	comp := healthChecker.components["store"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}

	if comp.Message != "disk full" {
		t.Errorf("expected message 'disk full', got '%s'", comp.Message)
	}
}
