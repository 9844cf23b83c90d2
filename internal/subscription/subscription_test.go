package subscription

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"tradesim/internal/kvstore"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewService(kvstore.NewMemoryStore(), log, 7)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGetCreatesFreeSubscription(t *testing.T) {
	s, _ := newTestService(t)
	sub, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, PlanFree, sub.Plan)
	require.Equal(t, StatusActive, sub.Status)
	require.False(t, sub.RealMoneyEnabled)

	allowed, err := s.IsTradingAllowed(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestStartTrialEnablesRealMoney(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	sub, err := s.StartTrial(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, PlanTrial, sub.Plan)
	require.True(t, sub.RealMoneyEnabled)
	require.NotNil(t, sub.TrialEndsAt)

	allowed, err := s.IsTradingAllowed(ctx, "u1")
	require.NoError(t, err)
	require.True(t, allowed)

	days, err := s.TrialDaysRemaining(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 7, days)
}

func TestTrialExpiresOnRead(t *testing.T) {
	s, now := newTestService(t)
	ctx := context.Background()

	_, err := s.StartTrial(ctx, "u1")
	require.NoError(t, err)

	*now = now.AddDate(0, 0, 8)

	sub, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, StatusExpired, sub.Status)
	require.False(t, sub.RealMoneyEnabled)

	allowed, err := s.IsTradingAllowed(ctx, "u1")
	require.NoError(t, err)
	require.False(t, allowed)

	days, err := s.TrialDaysRemaining(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, days)
}

func TestUpgradeToPremium(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	sub, err := s.UpgradeToPremium(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, PlanPremium, sub.Plan)
	require.True(t, sub.RealMoneyEnabled)
	require.NotNil(t, sub.SubscriptionEndsAt)

	allowed, err := s.IsTradingAllowed(ctx, "u1")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestUpgradeAfterExpiredTrial(t *testing.T) {
	s, now := newTestService(t)
	ctx := context.Background()

	_, err := s.StartTrial(ctx, "u1")
	require.NoError(t, err)
	*now = now.AddDate(0, 0, 30)

	sub, err := s.UpgradeToPremium(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, PlanPremium, sub.Plan)
	require.Equal(t, StatusActive, sub.Status)
	require.True(t, sub.RealMoneyEnabled)
}
