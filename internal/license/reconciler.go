// Package license reconciles the local license state with the Lemon
// Squeezy license API.
package license

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lobisloby/privacyfill/internal/lemonsqueezy"
	"github.com/lobisloby/privacyfill/internal/store"
)

// Licenses is the subset of the license API client the reconciler uses.
type Licenses interface {
	Activate(ctx context.Context, key, instanceName string) (*lemonsqueezy.LicenseResult, error)
	Validate(ctx context.Context, key, instanceID string) (*lemonsqueezy.LicenseResult, error)
	Deactivate(ctx context.Context, key, instanceID string) (bool, error)
}

// ActivationResult reports an activation attempt to the caller.
type ActivationResult struct {
	Success bool
	Message string
}

// Reconciler keeps the local license record in sync with the provider.
// Remote failures never grant premium: activation fails closed.
type Reconciler struct {
	store  *store.Store
	client Licenses
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciler(s *store.Store, client Licenses, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: s, client: client, logger: logger, now: time.Now}
}

// Activate activates key for this install. On transport failure the
// local state is left untouched and a connectivity message is returned.
func (r *Reconciler) Activate(ctx context.Context, key string) (*ActivationResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ActivationResult{Success: false, Message: "License key is required"}, nil
	}

	// The install instance ID keeps re-activation on the same seat.
	result, err := r.client.Activate(ctx, key, r.store.InstanceID())
	if err != nil {
		r.logger.Warn("license activation request failed", "error", err)
		return &ActivationResult{
			Success: false,
			Message: "Could not reach the license server. Please check your connection and try again.",
		}, nil
	}

	if !result.Valid {
		return &ActivationResult{Success: false, Message: result.Message}, nil
	}

	activatedAt := r.now()
	info := store.LicenseInfo{
		Key:           key,
		InstanceID:    result.InstanceID,
		InstanceName:  r.store.InstanceID(),
		ProductName:   result.ProductName,
		CustomerName:  result.CustomerName,
		CustomerEmail: result.CustomerEmail,
		ActivatedAt:   &activatedAt,
	}
	if err := r.store.SetLicense(info); err != nil {
		return nil, err
	}

	r.logger.Info("license activated", "product", result.ProductName)
	return &ActivationResult{Success: true, Message: result.Message}, nil
}

// Deactivate releases the seat remotely when possible and always
// clears the local license record.
func (r *Reconciler) Deactivate(ctx context.Context) error {
	info := r.store.License()
	if info == nil {
		return nil
	}

	if info.InstanceID != "" {
		if _, err := r.client.Deactivate(ctx, info.Key, info.InstanceID); err != nil {
			r.logger.Warn("remote license deactivation failed, clearing locally", "error", err)
		}
	}

	return r.store.ClearLicense()
}

// Verify revalidates the stored key. A provider rejection clears the
// local record and returns false. A transport failure leaves the state
// untouched so an offline premium user keeps working.
func (r *Reconciler) Verify(ctx context.Context) (bool, error) {
	info := r.store.License()
	if info == nil {
		return false, nil
	}

	result, err := r.client.Validate(ctx, info.Key, info.InstanceID)
	if err != nil {
		// Indeterminate: the stored license stays in place.
		return false, err
	}

	if !result.Valid {
		r.logger.Info("stored license no longer valid, clearing", "message", result.Message)
		if err := r.store.ClearLicense(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
