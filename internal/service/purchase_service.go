package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"hskmaster/internal/counters"
)

const (
	// PurchasesNamespace is the counter namespace holding purchase flags
	PurchasesNamespace = "purchases"

	// ProductPremium is the store product that unlocks premium content
	ProductPremium = "premium_unlock"

	keyIsPremium = "is_premium"
)

// PurchaseService keeps the local premium flag
type PurchaseService struct {
	store counters.Store
	log   logrus.FieldLogger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(store counters.Store, log logrus.FieldLogger) *PurchaseService {
	return &PurchaseService{
		store: store,
		log:   log.WithField("component", "purchases"),
	}
}

// IsPremium reports whether premium access is unlocked
func (s *PurchaseService) IsPremium(ctx context.Context) (bool, error) {
	values, err := s.store.Load(ctx, PurchasesNamespace)
	if err != nil {
		return false, fmt.Errorf("load purchases: %w", err)
	}
	return values.Bool(keyIsPremium, false), nil
}

// SetPremium stores the premium flag
func (s *PurchaseService) SetPremium(ctx context.Context, premium bool) error {
	values := counters.Values{}
	values.SetBool(keyIsPremium, premium)
	if err := s.store.Save(ctx, PurchasesNamespace, values); err != nil {
		return fmt.Errorf("save purchases: %w", err)
	}
	s.log.WithField("premium", premium).Info("premium flag updated")
	return nil
}

// TogglePremium flips the premium flag and returns the new value
func (s *PurchaseService) TogglePremium(ctx context.Context) (bool, error) {
	premium, err := s.IsPremium(ctx)
	if err != nil {
		return false, err
	}
	if err := s.SetPremium(ctx, !premium); err != nil {
		return false, err
	}
	return !premium, nil
}
