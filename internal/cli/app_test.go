package cli

import (
	"context"
	"testing"
	"time"

	"gastos/internal/backend"
	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/repository/memory"
	"gastos/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:     "0123456789abcdef0123",
		JWTTTL:        time.Hour,
		CacheSize:     10,
		CacheTTL:      time.Minute,
		InsightPolicy: "bands",
	}
}

func TestNewApp(t *testing.T) {
	store := memory.New()
	app, err := NewApp(testConfig(), &backend.BackendResult{Store: store})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if got := app.Analysis.Policy(); got != "bands" {
		t.Errorf("policy = %q, want bands", got)
	}

	ctx := context.Background()
	session, err := app.Auth.Register(ctx, "Ana", "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := app.Transactions.Create(ctx, session.User.ID, services.TransactionInput{
		Type: core.Income, Amount: core.Money{Cents: 1000}, Category: "Trabalho",
	}); err != nil {
		t.Fatalf("create without event client: %v", err)
	}
}

func TestNewApp_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.InsightPolicy = "magic"
	if _, err := NewApp(cfg, &backend.BackendResult{Store: memory.New()}); err == nil {
		t.Error("expected error for unknown policy")
	}

	cfg = testConfig()
	cfg.JWTSecret = ""
	if _, err := NewApp(cfg, &backend.BackendResult{Store: memory.New()}); err == nil {
		t.Error("expected error for empty secret")
	}
}
