package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeterProvider creates a test meter provider with a manual reader
func setupTestMeterProvider(t *testing.T) (*metric.MeterProvider, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider, reader
}

func TestNewOTelMetrics(t *testing.T) {
	t.Run("successful initialization", func(t *testing.T) {
		provider, _ := setupTestMeterProvider(t)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				t.Logf("Error shutting down provider: %v", err)
			}
		}()

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v, want nil", err)
		}

		if m == nil {
			t.Fatal("NewOTelMetrics() returned nil metrics")
		}

		// Verify that all metric instruments are initialized
		if m.httpRequestsTotal == nil {
			t.Error("httpRequestsTotal is nil")
		}
		if m.httpRequestDuration == nil {
			t.Error("httpRequestDuration is nil")
		}
		if m.httpRequestSize == nil {
			t.Error("httpRequestSize is nil")
		}
		if m.httpResponseSize == nil {
			t.Error("httpResponseSize is nil")
		}
		if m.dbConnectionsActive == nil {
			t.Error("dbConnectionsActive is nil")
		}
		if m.dbConnectionsIdle == nil {
			t.Error("dbConnectionsIdle is nil")
		}
		if m.dbQueryDuration == nil {
			t.Error("dbQueryDuration is nil")
		}
		if m.dbQueriesTotal == nil {
			t.Error("dbQueriesTotal is nil")
		}
		if m.handoffIssuanceTotal == nil {
			t.Error("handoffIssuanceTotal is nil")
		}
		if m.handoffIssuanceDuration == nil {
			t.Error("handoffIssuanceDuration is nil")
		}
		if m.authAttemptsTotal == nil {
			t.Error("authAttemptsTotal is nil")
		}
	})
}

func TestOTelMetrics_RecordHTTPRequest(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		route        string
		statusCode   int
		duration     time.Duration
		requestSize  int64
		responseSize int64
	}{
		{
			name:         "successful GET request",
			method:       "GET",
			route:        "/api/v1/permissions",
			statusCode:   200,
			duration:     100 * time.Millisecond,
			requestSize:  0,
			responseSize: 1024,
		},
		{
			name:         "POST request with request body",
			method:       "POST",
			route:        "/api/v1/projects/123/handoff",
			statusCode:   200,
			duration:     250 * time.Millisecond,
			requestSize:  512,
			responseSize: 256,
		},
		{
			name:         "error response",
			method:       "GET",
			route:        "/api/v1/projects/123/members",
			statusCode:   404,
			duration:     50 * time.Millisecond,
			requestSize:  0,
			responseSize: 128,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := setupTestMeterProvider(t)
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					t.Logf("Error shutting down provider: %v", err)
				}
			}()

			m, err := NewOTelMetrics()
			if err != nil {
				t.Fatalf("NewOTelMetrics() error = %v", err)
			}

			ctx := context.Background()
			m.RecordHTTPRequest(ctx, tt.method, tt.route, tt.statusCode, tt.duration, tt.requestSize, tt.responseSize)

			var rm metricdata.ResourceMetrics
			err = reader.Collect(ctx, &rm)
			if err != nil {
				t.Fatalf("Failed to collect metrics: %v", err)
			}

			if len(rm.ScopeMetrics) == 0 {
				t.Error("No scope metrics recorded")
				return
			}

			foundCounter := false
			foundDuration := false
			foundRequestSize := false
			foundResponseSize := false

			for _, sm := range rm.ScopeMetrics {
				for _, m := range sm.Metrics {
					switch m.Name {
					case "http.server.requests":
						foundCounter = true
						if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
							if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 1 {
								t.Errorf("Expected counter value 1, got %d", sum.DataPoints[0].Value)
							}
						}
					case "http.server.duration":
						foundDuration = true
					case "http.server.request.size":
						if tt.requestSize > 0 {
							foundRequestSize = true
						}
					case "http.server.response.size":
						if tt.responseSize > 0 {
							foundResponseSize = true
						}
					}
				}
			}

			if !foundCounter {
				t.Error("HTTP request counter not recorded")
			}
			if !foundDuration {
				t.Error("HTTP request duration not recorded")
			}
			if tt.requestSize > 0 && !foundRequestSize {
				t.Error("HTTP request size not recorded when requestSize > 0")
			}
			if tt.responseSize > 0 && !foundResponseSize {
				t.Error("HTTP response size not recorded when responseSize > 0")
			}
		})
	}
}

func TestOTelMetrics_RecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful SELECT",
			operation: "SELECT",
			duration:  50 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "successful INSERT",
			operation: "INSERT",
			duration:  100 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "failed UPDATE",
			operation: "UPDATE",
			duration:  75 * time.Millisecond,
			err:       errors.New("constraint violation"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := setupTestMeterProvider(t)
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					t.Logf("Error shutting down provider: %v", err)
				}
			}()

			m, err := NewOTelMetrics()
			if err != nil {
				t.Fatalf("NewOTelMetrics() error = %v", err)
			}

			ctx := context.Background()
			m.RecordDBQuery(ctx, tt.operation, tt.duration, tt.err)

			var rm metricdata.ResourceMetrics
			err = reader.Collect(ctx, &rm)
			if err != nil {
				t.Fatalf("Failed to collect metrics: %v", err)
			}

			foundCounter := false
			foundDuration := false

			for _, sm := range rm.ScopeMetrics {
				for _, m := range sm.Metrics {
					switch m.Name {
					case "db.queries.total":
						foundCounter = true
						if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
							if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 1 {
								t.Errorf("Expected counter value 1, got %d", sum.DataPoints[0].Value)
							}
						}
					case "db.query.duration":
						foundDuration = true
					}
				}
			}

			if !foundCounter {
				t.Error("DB queries counter not recorded")
			}
			if !foundDuration {
				t.Error("DB query duration not recorded")
			}
		})
	}
}

func TestOTelMetrics_RecordHandoffIssuance(t *testing.T) {
	tests := []struct {
		name    string
		outcome string
	}{
		{
			name:    "successful issuance",
			outcome: "ok",
		},
		{
			name:    "forbidden issuance",
			outcome: "forbidden",
		},
		{
			name:    "backend unavailable",
			outcome: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := setupTestMeterProvider(t)
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					t.Logf("Error shutting down provider: %v", err)
				}
			}()

			m, err := NewOTelMetrics()
			if err != nil {
				t.Fatalf("NewOTelMetrics() error = %v", err)
			}

			ctx := context.Background()
			m.RecordHandoffIssuance(ctx, tt.outcome, 5*time.Millisecond)

			var rm metricdata.ResourceMetrics
			err = reader.Collect(ctx, &rm)
			if err != nil {
				t.Fatalf("Failed to collect metrics: %v", err)
			}

			foundCounter := false
			foundDuration := false

			for _, sm := range rm.ScopeMetrics {
				for _, m := range sm.Metrics {
					switch m.Name {
					case "handoff.issuance.total":
						foundCounter = true
					case "handoff.issuance.duration":
						foundDuration = true
					}
				}
			}

			if !foundCounter {
				t.Error("Handoff issuance counter not recorded")
			}
			if !foundDuration {
				t.Error("Handoff issuance duration not recorded")
			}
		})
	}
}

func TestOTelMetrics_RecordAuthAttempt(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordAuthAttempt(ctx, "session", "success")
	m.RecordAuthAttempt(ctx, "session", "failure")
	m.RecordAuthAttempt(ctx, "oidc", "success")

	var rm metricdata.ResourceMetrics
	err = reader.Collect(ctx, &rm)
	if err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "auth.attempts.total" {
				found = true
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					if len(sum.DataPoints) != 3 {
						t.Errorf("Expected 3 data points, got %d", len(sum.DataPoints))
					}
				}
			}
		}
	}

	if !found {
		t.Error("Auth attempts counter not recorded")
	}
}

func TestOTelMetrics_UpdateDBConnectionStats(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.UpdateDBConnectionStats(ctx, 5, 3)

	var rm metricdata.ResourceMetrics
	err = reader.Collect(ctx, &rm)
	if err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	foundActive := false
	foundIdle := false

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "db.connections.active":
				foundActive = true
			case "db.connections.idle":
				foundIdle = true
			}
		}
	}

	if !foundActive {
		t.Error("DB connections active metric not recorded")
	}
	if !foundIdle {
		t.Error("DB connections idle metric not recorded")
	}
}

func TestOTelMetrics_MultipleOperations(t *testing.T) {
	t.Run("multiple HTTP requests", func(t *testing.T) {
		provider, reader := setupTestMeterProvider(t)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				t.Logf("Error shutting down provider: %v", err)
			}
		}()

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v", err)
		}

		ctx := context.Background()

		for i := 0; i < 5; i++ {
			m.RecordHTTPRequest(ctx, "GET", "/api/v1/permissions", 200, 100*time.Millisecond, 0, 1024)
		}

		var rm metricdata.ResourceMetrics
		err = reader.Collect(ctx, &rm)
		if err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "http.server.requests" {
					if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
						if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 5 {
							t.Errorf("Expected counter value 5, got %d", sum.DataPoints[0].Value)
						}
					}
				}
			}
		}
	})
}

func TestOTelHTTPMetricsMiddleware(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	handler := OTelHTTPMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"not a member of this project"}`))
	}))

	r := httptest.NewRequest("POST", "/api/v1/projects/123/handoff", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	foundCounter := false
	foundResponseSize := false
	for _, sm := range rm.ScopeMetrics {
		for _, metricEntry := range sm.Metrics {
			switch metricEntry.Name {
			case "http.server.requests":
				foundCounter = true
				if sum, ok := metricEntry.Data.(metricdata.Sum[int64]); ok {
					if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
						t.Errorf("Expected a single counter data point of 1, got %+v", sum.DataPoints)
					}
				}
			case "http.server.response.size":
				foundResponseSize = true
			}
		}
	}

	if !foundCounter {
		t.Error("middleware did not record the request counter")
	}
	if !foundResponseSize {
		t.Error("middleware did not record the response size")
	}
}
