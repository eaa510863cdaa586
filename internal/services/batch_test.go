package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type item struct {
	key string
	n   int
}

func itemFields(it item) logrus.Fields { return logrus.Fields{"key": it.key, "n": it.n} }

func TestProcessBatchIsolatesItemErrors(t *testing.T) {
	items := []item{{"a", 1}, {"b", 2}, {"c", 3}, {"d", 4}}
	res, err := processBatch(context.Background(), "test", items, 2,
		func(it item) string { return it.key }, itemFields,
		func(_ context.Context, it item) error {
			switch it.n {
			case 2:
				return errors.New("bad record")
			case 3:
				return skipf("not ready")
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 4, res.Processed)
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
}

func TestProcessBatchCountsDuplicateChargeAsSkipped(t *testing.T) {
	res, err := processBatch(context.Background(), "test", []item{{"a", 1}}, 1,
		func(it item) string { return it.key }, itemFields,
		func(context.Context, item) error {
			return fmt.Errorf("%w: already billed", utils.ErrDuplicatePeriodCharge)
		})
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
}

func TestProcessBatchAbortsOnStoreOutage(t *testing.T) {
	items := make([]item, 20)
	for i := range items {
		items[i] = item{key: "same", n: i}
	}
	res, err := processBatch(context.Background(), "test", items, 4,
		func(it item) string { return it.key }, itemFields,
		func(_ context.Context, it item) error {
			if it.n == 5 {
				return repositories.ErrStoreUnavailable
			}
			return nil
		})
	require.ErrorIs(t, err, repositories.ErrStoreUnavailable)
	// one key means one worker, so nothing after the outage ran
	require.Equal(t, 6, res.Processed)
	require.Equal(t, 5, res.Succeeded)
}

func TestProcessBatchKeepsOrderWithinKey(t *testing.T) {
	var items []item
	for i := 0; i < 30; i++ {
		items = append(items, item{key: fmt.Sprintf("k%d", i%3), n: i})
	}

	var mu sync.Mutex
	seen := map[string][]int{}
	_, err := processBatch(context.Background(), "test", items, 3,
		func(it item) string { return it.key }, itemFields,
		func(_ context.Context, it item) error {
			mu.Lock()
			seen[it.key] = append(seen[it.key], it.n)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)
	for key, ns := range seen {
		for i := 1; i < len(ns); i++ {
			require.Lessf(t, ns[i-1], ns[i], "key %s out of order", key)
		}
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	res, err := processBatch(context.Background(), "test", nil, 4,
		func(it item) string { return it.key }, itemFields,
		func(context.Context, item) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
}
