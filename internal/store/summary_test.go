package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concaria/internal/blueprint"
)

func setupSummaryStore(t *testing.T) *SummaryStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSummaryStore(client)
}

func TestSummaryStore_SaveAndLoadRun(t *testing.T) {
	s := setupSummaryStore(t)
	ctx := context.Background()

	summary := RunSummary{
		AccountID:       "acct-1",
		Organizations:   11,
		Devices:         2,
		EndUsers:        19,
		MqttCredentials: 21,
		CompletedAt:     time.Now().UTC().Truncate(time.Second),
	}
	devices := []blueprint.Device{
		{ID: "device-1", Name: "Home-Air-Purifier-0", SerialNumber: "HAP-000001", DeviceTemplateID: "devtpl-1", OrganizationID: "org-1"},
		{ID: "device-2", Name: "Home-Air-Purifier-1", SerialNumber: "HAP-000002", DeviceTemplateID: "devtpl-1", OrganizationID: "org-1"},
	}

	require.NoError(t, s.SaveRun(ctx, summary, devices))

	loaded, err := s.LoadRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary, *loaded)

	serials, err := s.ListDeviceSerials(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"HAP-000001", "HAP-000002"}, serials)
}

func TestSummaryStore_LoadRunMiss(t *testing.T) {
	s := setupSummaryStore(t)

	_, err := s.LoadRun(context.Background())
	assert.ErrorIs(t, err, ErrNoSummary)
}

func TestSummaryStore_GetDevice(t *testing.T) {
	s := setupSummaryStore(t)
	ctx := context.Background()

	devices := []blueprint.Device{
		{ID: "device-1", Name: "Jacket-0", SerialNumber: "JKT-000001", DeviceTemplateID: "devtpl-3", OrganizationID: "org-2"},
	}
	require.NoError(t, s.SaveRun(ctx, RunSummary{AccountID: "acct-1"}, devices))

	entry, err := s.GetDevice(ctx, "JKT-000001")
	require.NoError(t, err)
	assert.Equal(t, "device-1", entry.DeviceID)
	assert.Equal(t, "org-2", entry.OrganizationID)

	_, err = s.GetDevice(ctx, "JKT-999999")
	assert.Error(t, err)
}
