package cli

import (
	"log/slog"
	"testing"
	"time"

	"networth/internal/backend"
	"networth/internal/backend/memory"
	"networth/internal/config"
	"networth/internal/metrics"
)

func TestNewBridgeService(t *testing.T) {
	store := memory.New(nil, nil)
	res := &backend.BackendResult{Ledger: store, Importer: store, Snapshots: store}

	tests := []struct {
		name        string
		ttl         time.Duration
		wantManager bool
	}{
		{name: "cache disabled", ttl: 0},
		{name: "cache enabled", ttl: time.Minute, wantManager: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{BridgeCacheTTL: tt.ttl, CashCategories: []string{"Cash"}}
			svc, manager := NewBridgeService(cfg, res, metrics.Nop{})
			if svc == nil {
				t.Fatal("expected bridge service")
			}
			if (manager != nil) != tt.wantManager {
				t.Fatalf("manager = %v, want present=%v", manager, tt.wantManager)
			}
			if manager != nil {
				manager.Stop()
			}
		})
	}
}

func TestSetupLoggerHonorsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("error")
	if logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be disabled at error level")
	}
}
