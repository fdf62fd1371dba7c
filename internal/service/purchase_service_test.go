package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hskmaster/internal/counters"
	"hskmaster/internal/logging"
)

func TestPremiumFlag(t *testing.T) {
	store := counters.NewMemoryStore()
	s := NewPurchaseService(store, logging.Discard())
	ctx := context.Background()

	premium, err := s.IsPremium(ctx)
	require.NoError(t, err)
	assert.False(t, premium, "locked by default")

	premium, err = s.TogglePremium(ctx)
	require.NoError(t, err)
	assert.True(t, premium)

	premium, err = s.IsPremium(ctx)
	require.NoError(t, err)
	assert.True(t, premium)

	require.NoError(t, s.SetPremium(ctx, false))
	premium, err = s.IsPremium(ctx)
	require.NoError(t, err)
	assert.False(t, premium)

	values, err := store.Load(ctx, PurchasesNamespace)
	require.NoError(t, err)
	assert.Equal(t, "false", values["is_premium"])
}
