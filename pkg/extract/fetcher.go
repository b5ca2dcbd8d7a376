// pkg/extract/fetcher.go
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"campushours/pkg/browser"
	"campushours/pkg/hours"
	"campushours/pkg/log"
)

// nextWeekControl clicks the pagination control that advances the dining
// table's displayed week, reporting whether it fired. Polled until true so
// a control that hydrates late still gets its click.
const nextWeekControl = `
(() => {
  const control = document.querySelector(
    'button[aria-label*="ext week"], button[aria-label*="ext"], .pagination-next, button.next-week');
  if (!control || control.disabled || control.offsetParent === null) return false;
  control.click();
  return true;
})()`

// BrowserFetcher navigates one page per facility on the shared browser and
// hands it to the matching extractor variant.
type BrowserFetcher struct {
	Manager    *browser.Manager
	NavTimeout time.Duration
	Settle     time.Duration
	Now        func() time.Time
}

// Fetch opens a scoped page, navigates to the facility URL and runs the
// facility's extractor. The page is closed on every exit path.
func (f *BrowserFetcher) Fetch(ctx context.Context, facility hours.Facility) (hours.RawHours, error) {
	extractor := ForFacility(facility.Type, f.Settle)
	if extractor == nil {
		return hours.RawHours{}, fmt.Errorf("no extractor for facility %q", facility.Type)
	}

	var raw hours.RawHours
	err := f.Manager.WithPage(func(pageCtx context.Context) error {
		navCtx, cancel := context.WithTimeout(pageCtx, f.NavTimeout)
		defer cancel()
		if err := chromedp.Run(navCtx, chromedp.Navigate(facility.URL)); err != nil {
			return fmt.Errorf("navigate %s: %w", facility.URL, err)
		}

		f.alignWeek(pageCtx, facility.Type)

		fetched, err := extractor.Fetch(pageCtx)
		if err != nil {
			return err
		}
		raw = fetched
		return nil
	})
	return raw, err
}

// alignWeek advances the dining table one week on Saturdays so the visible
// window still contains today. The control renders client-side along with
// the table, so the page gets its content wait plus a polling window before
// the control is declared absent; missing, hidden or disabled after that is
// a no-op, never an error.
func (f *BrowserFetcher) alignWeek(pageCtx context.Context, facilityType hours.FacilityType) {
	if facilityType != hours.Dining {
		return
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if now().Weekday() != time.Saturday {
		return
	}

	waitForAny(pageCtx, diningReady)

	clickCtx, cancel := context.WithTimeout(pageCtx, 2*selectorTimeout)
	defer cancel()
	var clicked bool
	err := chromedp.Run(clickCtx,
		chromedp.Poll(nextWeekControl, &clicked, chromedp.WithPollingTimeout(selectorTimeout)))
	if err != nil {
		log.L().Debug("week_align_skipped", zap.Error(err))
		return
	}
	if clicked {
		log.L().Info("week_aligned", zap.String("facility", string(facilityType)))
	}
}
