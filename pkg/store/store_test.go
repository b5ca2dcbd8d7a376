// pkg/store/store_test.go
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushours/pkg/hours"
	"campushours/pkg/log"
)

func TestMain(m *testing.M) {
	_ = log.Init(false)
	os.Exit(m.Run())
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	gateway, err := Open(filepath.Join(t.TempDir(), "nested", "facilities.db"))
	require.NoError(t, err)
	t.Cleanup(func() { gateway.Close() })
	require.NoError(t, gateway.Migrate(hours.DefaultFacilities()))
	return gateway
}

func strPtr(value string) *string { return &value }

func TestMigrateIsIdempotent(t *testing.T) {
	gateway := openTestStore(t)
	require.NoError(t, gateway.Migrate(hours.DefaultFacilities()))

	var count int
	require.NoError(t, gateway.db.QueryRow(`SELECT COUNT(*) FROM facilities`).Scan(&count))
	assert.Equal(t, len(hours.DefaultFacilities()), count, "reseeding must not duplicate facilities")
}

func TestReplaceFacilityHoursRoundTrip(t *testing.T) {
	gateway := openTestStore(t)
	ctx := context.Background()

	written := []hours.Entry{
		{Facility: hours.Library, Section: "Main Library", Day: hours.Sunday, Closed: true},
		{Facility: hours.Library, Section: "Main Library", Day: hours.Monday,
			Open: strPtr("7:30 AM"), Close: strPtr("11:00 PM")},
		{Facility: hours.Library, Section: "IT Desk", Day: hours.Monday,
			Open: strPtr("8:00 AM"), Close: strPtr("5:00 PM"), Notes: "Second floor"},
	}
	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Library, written))

	read, err := gateway.FacilityHours(ctx, hours.Library)
	require.NoError(t, err)
	require.Len(t, read, 3)

	assert.Equal(t, "IT Desk", read[0].Section, "ordered by section then day")
	assert.Equal(t, "Second floor", read[0].Notes)
	assert.Equal(t, "Main Library", read[1].Section)
	assert.Equal(t, hours.Sunday, read[1].Day)
	assert.True(t, read[1].Closed)
	assert.Nil(t, read[1].Open)
	require.NotNil(t, read[2].Open)
	assert.Equal(t, "7:30 AM", *read[2].Open)
	assert.Equal(t, "11:00 PM", *read[2].Close)
}

func TestReplaceFacilityHoursReplacesNotAppends(t *testing.T) {
	gateway := openTestStore(t)
	ctx := context.Background()

	first := []hours.Entry{
		{Section: "Main Library", Day: hours.Monday, Open: strPtr("7:30 AM"), Close: strPtr("11:00 PM")},
		{Section: "Main Library", Day: hours.Tuesday, Open: strPtr("7:30 AM"), Close: strPtr("11:00 PM")},
	}
	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Library, first))

	second := []hours.Entry{
		{Section: "Main Library", Day: hours.Monday, Closed: true},
	}
	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Library, second))

	read, err := gateway.FacilityHours(ctx, hours.Library)
	require.NoError(t, err)
	require.Len(t, read, 1, "old rows replaced, not accumulated")
	assert.True(t, read[0].Closed)
}

func TestReplaceFacilityHoursIsolatedPerFacility(t *testing.T) {
	gateway := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Library, []hours.Entry{
		{Section: "Main Library", Day: hours.Monday, Closed: true},
	}))
	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Shuttle, []hours.Entry{
		{Section: "Ram Tram", Day: hours.Monday,
			Open: strPtr("7:00 AM"), Close: strPtr("7:00 PM"), Route: "Gold Route"},
	}))

	// Rewriting the shuttle must leave library rows alone.
	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Shuttle, nil))

	libraryRows, err := gateway.FacilityHours(ctx, hours.Library)
	require.NoError(t, err)
	assert.Len(t, libraryRows, 1)

	shuttleRows, err := gateway.FacilityHours(ctx, hours.Shuttle)
	require.NoError(t, err)
	assert.Empty(t, shuttleRows)
}

func TestReplaceFacilityHoursUnknownFacility(t *testing.T) {
	gateway, err := Open(filepath.Join(t.TempDir(), "facilities.db"))
	require.NoError(t, err)
	defer gateway.Close()
	require.NoError(t, gateway.Migrate(nil))

	err = gateway.ReplaceFacilityHours(context.Background(), hours.Library, nil)
	assert.Error(t, err, "unseeded facility type cannot be written")
}

func TestRouteRoundTrip(t *testing.T) {
	gateway := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, gateway.ReplaceFacilityHours(ctx, hours.Shuttle, []hours.Entry{
		{Section: "Ram Tram", Day: hours.Wednesday,
			Open: strPtr("7:00 AM"), Close: strPtr("7:00 PM"), Route: "Blue Route"},
		{Section: "Ram Tram", Day: hours.Saturday, Closed: true},
	}))

	read, err := gateway.FacilityHours(ctx, hours.Shuttle)
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, "Blue Route", read[0].Route)
	assert.Empty(t, read[1].Route, "NULL route reads back empty")
}

func TestScrapeLogAppendAndRead(t *testing.T) {
	gateway := openTestStore(t)
	ctx := context.Background()

	gateway.AppendScrapeLog(ctx, hours.Library, hours.StatusStarted, "Beginning library hours scrape")
	gateway.AppendScrapeLog(ctx, hours.Library, hours.StatusSuccess, "Updated 12 library hour records")
	gateway.AppendScrapeLog(ctx, hours.Dining, hours.StatusError, "extraction: no hours data found on the page")

	records, err := gateway.RecentScrapeLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2, "limit respected")

	assert.Equal(t, hours.Dining, records[0].Facility, "newest first")
	assert.Equal(t, hours.StatusError, records[0].Status)
	assert.Equal(t, hours.StatusSuccess, records[1].Status)
	assert.False(t, records[0].At.IsZero())
}
