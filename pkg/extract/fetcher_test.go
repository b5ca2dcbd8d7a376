// pkg/extract/fetcher_test.go
package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campushours/pkg/hours"
)

func TestAlignWeekOnlyTouchesDiningOnSaturday(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Saturday, saturday.Weekday())

	// A cancelled plain context makes any page interaction fail fast, so the
	// guarded paths must return before reaching the browser and the dining
	// Saturday path must degrade to a no-op instead of erroring out.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &BrowserFetcher{Now: func() time.Time { return saturday }}
	fetcher.alignWeek(ctx, hours.Library)
	fetcher.alignWeek(ctx, hours.Shuttle)
	fetcher.alignWeek(ctx, hours.Dining)

	sunday := saturday.AddDate(0, 0, 1)
	fetcher.Now = func() time.Time { return sunday }
	fetcher.alignWeek(ctx, hours.Dining)
}
