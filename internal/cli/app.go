package cli

import (
	"fmt"

	"gastos/internal/auth"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/categorize"
	"gastos/internal/config"
	"gastos/internal/insights"
	"gastos/internal/services"
)

// App holds the services built on top of a backend.
type App struct {
	Auth         *auth.Service
	Transactions *services.TransactionService
	Analysis     *services.AnalysisService
	Cache        *cache.LRUCache[insights.Analysis]
}

// NewApp wires the domain services to the store and event client in res.
func NewApp(cfg *config.Config, res *backend.BackendResult) (*App, error) {
	policy, err := insights.ParsePolicy(cfg.InsightPolicy)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	analysisCache := cache.NewLRUCache[insights.Analysis](cfg.CacheSize, cfg.CacheTTL)
	analysis := services.NewAnalysisService(res.Store, res.Store,
		insights.NewEngine(policy, cfg.Thresholds()),
		categorize.New(categorize.DefaultRules),
		analysisCache)

	// A nil *amqp.Client must not become a non-nil interface.
	var publisher services.EventPublisher
	if res.Events != nil {
		publisher = res.Events
	}

	return &App{
		Auth:         auth.NewService(res.Store, tokens),
		Transactions: services.NewTransactionService(res.Store, publisher, analysis),
		Analysis:     analysis,
		Cache:        analysisCache,
	}, nil
}
