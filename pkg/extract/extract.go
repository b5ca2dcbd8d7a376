// pkg/extract/extract.go
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"campushours/pkg/hours"
	"campushours/pkg/log"
)

const (
	selectorTimeout = 5 * time.Second
	bodySelector    = "body"
)

// Extractor recovers the raw section/day/free-text mapping from a page that
// has already been navigated to the facility's URL. An empty RawHours means
// "no matching structure found" and is distinct from an error.
type Extractor interface {
	Fetch(pageCtx context.Context) (hours.RawHours, error)
}

// ForFacility selects the structural variant for a facility type. The
// settle delay is the fixed wait applied after a content selector matches.
func ForFacility(facilityType hours.FacilityType, settle time.Duration) Extractor {
	switch facilityType {
	case hours.Library:
		return &Table{
			facility:  hours.Library,
			ready:     []string{".hours-of-operation-section", ".hours-container", ".location-hours", "table"},
			container: "#hours",
			rules:     libraryRules,
			settle:    settle,
		}
	case hours.Recreation:
		return &Table{
			facility:  hours.Recreation,
			ready:     []string{"#hours", "table"},
			container: "#hours",
			rules:     recreationRules,
			settle:    settle,
		}
	case hours.Dining:
		return &Dining{settle: settle}
	case hours.Shuttle:
		return &Shuttle{settle: settle}
	case hours.Tutoring:
		return &Tutoring{settle: settle}
	default:
		return nil
	}
}

// waitForAny tries each candidate selector in order with a short timeout and
// falls through silently when none matches; client-rendered pages sometimes
// never expose the selector we expect.
func waitForAny(pageCtx context.Context, selectors []string) {
	for _, selector := range selectors {
		waitCtx, cancel := context.WithTimeout(pageCtx, selectorTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
		cancel()
		if err == nil {
			return
		}
	}
	log.L().Debug("content_selectors_missed", zap.Strings("selectors", selectors))
}

// snapshot waits for content, lets client-side script settle, then captures
// the rendered body as a goquery document so parsing needs no live browser.
func snapshot(pageCtx context.Context, readySelectors []string, settle time.Duration) (*goquery.Document, error) {
	waitForAny(pageCtx, readySelectors)

	var pageHTML string
	err := chromedp.Run(pageCtx,
		chromedp.Sleep(settle),
		chromedp.OuterHTML(bodySelector, &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapse trims and squashes whitespace, including embedded newlines.
func collapse(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

var digitPattern = regexp.MustCompile(`\d`)

// cleanCellText applies the shared closed/empty/dash rules: anything that
// reads as unavailable collapses to the Closed literal, short digit-free
// fragments become a placeholder, everything else passes through collapsed.
func cleanCellText(raw string) string {
	text := collapse(raw)
	lowered := strings.ToLower(text)
	switch {
	case text == "" || text == "-" || lowered == "n/a" || lowered == "na":
		return hours.ClosedText
	case strings.Contains(lowered, "closed"),
		strings.Contains(lowered, "not open"),
		strings.Contains(lowered, "not available"):
		return hours.ClosedText
	case !digitPattern.MatchString(text) && len(text) <= 2:
		return "Hours not available"
	default:
		return text
	}
}

// CanonicalRule maps noisy source labels onto a canonical section name by
// case-insensitive substring match. Rules are evaluated top-down; the first
// match wins, and a rule may carry an exclusion fragment.
type CanonicalRule struct {
	Match   string
	Exclude string
	Name    string
}

// CanonicalRules is an ordered rule table, testable without DOM access.
type CanonicalRules []CanonicalRule

// Resolve returns the canonical name for a raw label, or the label itself
// when no rule matches.
func (rules CanonicalRules) Resolve(raw string) string {
	lowered := strings.ToLower(raw)
	for _, rule := range rules {
		if !strings.Contains(lowered, rule.Match) {
			continue
		}
		if rule.Exclude != "" && strings.Contains(lowered, rule.Exclude) {
			continue
		}
		return rule.Name
	}
	return raw
}

var libraryRules = CanonicalRules{
	{Match: "library", Exclude: "collection", Name: "Main Library"},
	{Match: "it desk", Name: "IT Desk"},
	{Match: "west texas collection", Name: "West Texas Collection"},
	{Match: "reference", Name: "Reference Desk"},
	{Match: "circulation", Name: "Circulation Desk"},
	{Match: "special collections", Name: "Special Collections"},
}

var recreationRules = CanonicalRules{
	{Match: "chp", Name: "CHP (Fitness Center)"},
	{Match: "fitness", Name: "CHP (Fitness Center)"},
	{Match: "swimming", Name: "Swimming Pool"},
	{Match: "pool", Name: "Swimming Pool"},
	{Match: "climbing", Name: "Rock Wall"},
	{Match: "rock", Name: "Rock Wall"},
	{Match: "wall", Name: "Rock Wall"},
	{Match: "lake", Name: "Lake House"},
	{Match: "intramural", Name: "Intramural Complex"},
}

// headerDays maps header cells (after the leading label column) to day
// names via substring match; unmapped headers keep an empty slot so column
// arithmetic stays aligned.
func headerDays(headerRow *goquery.Selection) []hours.Day {
	var days []hours.Day
	headerRow.Find("td,th").Each(func(cellIndex int, cell *goquery.Selection) {
		if cellIndex == 0 {
			return
		}
		day, _ := hours.DayFromText(cell.Text())
		days = append(days, day)
	})
	return days
}
