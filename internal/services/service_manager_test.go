package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/examsphere/quiz-session-service/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepository()

	manager := NewDefaultServiceManager(nil, repo, logger, validator.New(), nil)
	sm := manager.(*serviceManager)

	if sm.IsInitialized() {
		t.Fatal("manager should not report initialized before Initialize")
	}

	ctx := context.Background()
	if err := manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if !sm.IsInitialized() {
		t.Fatal("manager should report initialized")
	}

	// Idempotent
	if err := manager.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}

	if manager.Session() == nil {
		t.Error("Session() returned nil")
	}
	if manager.Entitlement() == nil {
		t.Error("Entitlement() returned nil")
	}
	if manager.Scoring() == nil {
		t.Error("Scoring() returned nil")
	}
	if manager.Leaderboard() == nil {
		t.Error("Leaderboard() returned nil")
	}
	if manager.Quiz() == nil {
		t.Error("Quiz() returned nil")
	}

	if err := manager.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck returned error: %v", err)
	}

	if err := manager.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
	if err := manager.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck should fail after shutdown")
	}
}

func TestServiceManager_GetterPanicsBeforeInitialize(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	manager := NewDefaultServiceManager(nil, newMockRepository(), logger, validator.New(), nil)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when reading a service before Initialize")
		}
	}()
	manager.Session()
}

func TestServiceManager_ZeroGraceWindowFallsBack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	manager := NewServiceManager(nil, newMockRepository(), logger, validator.New(), nil, ServiceManagerConfig{
		GraceWindow:    0,
		DefaultTimeout: time.Second,
	})

	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	sm := manager.(*serviceManager)
	if sm.config.GraceWindow != DefaultGraceWindow {
		t.Errorf("GraceWindow = %v, want the %v default", sm.config.GraceWindow, DefaultGraceWindow)
	}
}
