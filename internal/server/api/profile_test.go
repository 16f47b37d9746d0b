package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/mukha/internal/rules"
	"github.com/ayusman/mukha/internal/store"
	"github.com/ayusman/mukha/internal/threshold"
)

func TestProfileHandler_Get(t *testing.T) {
	ctl := newTestController(t)
	if err := ctl.store.Rules().Create(ctl.ProfileID(), &rules.Rule{Gesture: "smileLeft", Action: "right-click", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	handler := NewProfileHandler(ctl.store, ctl)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var schema store.Schema
	if err := json.NewDecoder(rec.Body).Decode(&schema); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if schema.Name != "default" {
		t.Errorf("expected name 'default', got %q", schema.Name)
	}
	if schema.Thresholds.DwellTime != threshold.DefaultDwellTime {
		t.Errorf("expected default dwell time, got %v", schema.Thresholds.DwellTime)
	}
	if len(schema.Rules) != 1 || schema.Rules[0].Action != "right-click" {
		t.Errorf("unexpected rules %+v", schema.Rules)
	}
	if schema.Calibration.AdaptationHistory == nil {
		t.Error("expected an empty adaptation history, got null")
	}
}

func TestProfileHandler_Update(t *testing.T) {
	ctl := newTestController(t)
	handler := NewProfileHandler(ctl.store, ctl)

	t.Run("applies and clamps the patch", func(t *testing.T) {
		body := `{"dwellTime": 1500, "mouthThreshold": 0.5}`
		req := httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var schema store.Schema
		if err := json.NewDecoder(rec.Body).Decode(&schema); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if schema.Thresholds.DwellTime != 1500 {
			t.Errorf("expected dwell time 1500, got %v", schema.Thresholds.DwellTime)
		}
		if schema.Thresholds.MouthThreshold != threshold.MouthBounds.Max {
			t.Errorf("expected mouth threshold clamped to %v, got %v", threshold.MouthBounds.Max, schema.Thresholds.MouthThreshold)
		}

		stored, err := ctl.store.Profiles().GetByID(ctl.ProfileID())
		if err != nil {
			t.Fatal(err)
		}
		if stored.Thresholds.DwellTime != 1500 {
			t.Errorf("expected stored dwell time 1500, got %v", stored.Thresholds.DwellTime)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/profile", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
