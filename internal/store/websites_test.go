package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderwatch-engine/internal/config"
)

func TestSyncWebsitesUpsertByURL(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	seeds := []config.Website{
		{Name: "中国政府采购网", URL: "www.ccgp.gov.cn", Category: "procurement"},
		{Name: "中国采购与招标网", URL: "www.chinabidding.cn", Category: "bidding", Status: "inactive"},
	}
	require.NoError(t, svc.SyncWebsites(ctx, seeds))

	all, err := svc.ListWebsites(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "active", all[0].Status)
	assert.Equal(t, "inactive", all[1].Status)

	// Re-sync with a renamed entry: same row count, updated name.
	seeds[0].Name = "政府采购网"
	require.NoError(t, svc.SyncWebsites(ctx, seeds))

	all, err = svc.ListWebsites(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "政府采购网", all[0].Name)
}

func TestListActiveWebsitesFiltersStatus(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncWebsites(ctx, []config.Website{
		{Name: "a", URL: "a.example.cn"},
		{Name: "b", URL: "b.example.cn", Status: "inactive"},
		{Name: "c", URL: "c.example.cn"},
	}))

	active, err := svc.ListActiveWebsites(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].Name)
	assert.Equal(t, "c", active[1].Name)
}

func TestSyncWebsitesSkipsEmptyURL(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncWebsites(ctx, []config.Website{{Name: "no-url"}}))

	all, err := svc.ListWebsites(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
