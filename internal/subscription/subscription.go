package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"tradesim/internal/kvstore"
)

const resource = "subscription"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanTrial   Plan = "trial"
	PlanPremium Plan = "premium"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription is a user's plan state. RealMoneyEnabled is the flag the
// real-money ledger consults before every trade.
type Subscription struct {
	UserID             string     `json:"user_id"`
	Plan               Plan       `json:"plan"`
	Status             Status     `json:"status"`
	RealMoneyEnabled   bool       `json:"real_money_enabled"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Service manages plan lifecycle: free by default, 7-day trials, monthly
// premium, and lazy trial-expiry checks on read.
type Service struct {
	store     kvstore.Store
	log       *logrus.Logger
	trialDays int
	now       func() time.Time
}

func NewService(store kvstore.Store, log *logrus.Logger, trialDays int) *Service {
	if trialDays <= 0 {
		trialDays = 7
	}
	return &Service{store: store, log: log, trialDays: trialDays, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the user's subscription, creating a free one on first access
// and downgrading expired trials before returning.
func (s *Service) Get(ctx context.Context, userID string) (Subscription, error) {
	data, err := s.store.Get(ctx, userID, resource)
	if errors.Is(err, kvstore.ErrNotFound) {
		sub := Subscription{
			UserID:    userID,
			Plan:      PlanFree,
			Status:    StatusActive,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		}
		if err := s.save(ctx, sub); err != nil {
			return Subscription{}, err
		}
		return sub, nil
	}
	if err != nil {
		return Subscription{}, err
	}
	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return Subscription{}, fmt.Errorf("decode subscription for %s: %w", userID, err)
	}

	if sub.Plan == PlanTrial && sub.Status == StatusActive && sub.TrialEndsAt != nil && s.now().After(*sub.TrialEndsAt) {
		sub.Status = StatusExpired
		sub.RealMoneyEnabled = false
		sub.UpdatedAt = s.now()
		if err := s.save(ctx, sub); err != nil {
			return Subscription{}, err
		}
		s.log.Infof("trial expired for %s", userID)
	}
	return sub, nil
}

// StartTrial enables real-money trading for the configured trial window.
func (s *Service) StartTrial(ctx context.Context, userID string) (Subscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	ends := s.now().AddDate(0, 0, s.trialDays)
	sub.Plan = PlanTrial
	sub.Status = StatusActive
	sub.TrialEndsAt = &ends
	sub.RealMoneyEnabled = true
	sub.UpdatedAt = s.now()
	if err := s.save(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// UpgradeToPremium enables real-money trading for one month.
func (s *Service) UpgradeToPremium(ctx context.Context, userID string) (Subscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	ends := s.now().AddDate(0, 1, 0)
	sub.Plan = PlanPremium
	sub.Status = StatusActive
	sub.SubscriptionEndsAt = &ends
	sub.RealMoneyEnabled = true
	sub.UpdatedAt = s.now()
	if err := s.save(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// IsTradingAllowed reports whether real-money operations are permitted.
// Matches ledger.EligibilityCheck.
func (s *Service) IsTradingAllowed(ctx context.Context, userID string) (bool, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.RealMoneyEnabled && sub.Status == StatusActive, nil
}

// TrialDaysRemaining returns whole days left in an active trial, zero
// otherwise.
func (s *Service) TrialDaysRemaining(ctx context.Context, userID string) (int, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if sub.Plan != PlanTrial || sub.TrialEndsAt == nil {
		return 0, nil
	}
	left := sub.TrialEndsAt.Sub(s.now())
	if left <= 0 {
		return 0, nil
	}
	return int(math.Ceil(left.Hours() / 24)), nil
}

func (s *Service) save(ctx context.Context, sub Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, sub.UserID, resource, data)
}
