// pkg/extract/shuttle.go
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"campushours/pkg/hours"
)

// ShuttleSection is the single canonical section name for the shuttle
// schedule; the route table has no per-section breakdown.
const ShuttleSection = "Ram Tram"

// termKeywords pick out the schedule row for the active term.
var termKeywords = []string{"fall", "spring", "summer"}

var routeNames = []string{"Gold Route", "Blue Route"}

// Shuttle handles the schedule table whose term row mixes a time range with
// a route label in each day cell.
type Shuttle struct {
	settle time.Duration
}

func (s *Shuttle) Fetch(pageCtx context.Context) (hours.RawHours, error) {
	document, err := snapshot(pageCtx, []string{"table"}, s.settle)
	if err != nil {
		return hours.RawHours{}, err
	}
	return parseSchedule(document), nil
}

func parseSchedule(document *goquery.Document) hours.RawHours {
	var raw hours.RawHours

	table := findTermTable(document)
	if table == nil {
		return raw
	}

	rows := table.Find("tr")
	headerRow := findRow(rows, func(text string) bool {
		_, ok := hours.DayFromText(text)
		return ok
	})
	termRow := findRow(rows, containsTermKeyword)
	if headerRow == nil || termRow == nil {
		return raw
	}

	// Days absent from the header run no service at all.
	section := raw.Section(ShuttleSection)
	for _, day := range hours.DayOrder {
		section.Days[day] = hours.RawCell{Text: hours.ClosedText}
	}

	headerCells := headerRow.Find("td,th")
	termCells := termRow.Find("td,th")
	headerCells.Each(func(cellIndex int, headerCell *goquery.Selection) {
		day, ok := hours.DayFromText(headerCell.Text())
		if !ok || cellIndex >= termCells.Length() {
			return
		}
		cellText := collapse(termCells.Eq(cellIndex).Text())
		if cellText == "" {
			return
		}
		timeText, route := splitRoute(cellText)
		if timeText == "" {
			return
		}
		section.Days[day] = hours.RawCell{Text: cleanCellText(timeText), Route: route}
	})
	return raw
}

// findTermTable returns the first table mentioning a term keyword.
func findTermTable(document *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	document.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if containsTermKeyword(table.Text()) {
			found = table
			return false
		}
		return true
	})
	return found
}

func containsTermKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range termKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func findRow(rows *goquery.Selection, match func(string) bool) *goquery.Selection {
	var found *goquery.Selection
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if match(row.Text()) {
			found = row
			return false
		}
		return true
	})
	return found
}

// splitRoute extracts a known route name by keyword match and strips it,
// leaving the bare time range.
func splitRoute(cellText string) (string, string) {
	route := ""
	lowered := strings.ToLower(cellText)
	remaining := cellText
	for _, name := range routeNames {
		if strings.Contains(lowered, strings.ToLower(name)) {
			route = name
			index := strings.Index(lowered, strings.ToLower(name))
			remaining = remaining[:index] + remaining[index+len(name):]
			break
		}
	}
	return collapse(remaining), route
}
