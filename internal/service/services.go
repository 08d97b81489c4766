// Package service contains the business logic layer.
package service

import (
	"log/slog"

	"github.com/lobisloby/privacyfill/internal/config"
	"github.com/lobisloby/privacyfill/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Ledger       *LedgerService
	Subscription *SubscriptionService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *Services {
	ledgerSvc := NewLedgerService(repos, cfg.FreeLimit, logger)
	subscriptionSvc := NewSubscriptionService(repos, logger)

	return &Services{
		Ledger:       ledgerSvc,
		Subscription: subscriptionSvc,
	}
}
