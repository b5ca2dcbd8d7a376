// pkg/extract/dining.go
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"campushours/pkg/hours"
)

var diningRules = CanonicalRules{
	{Match: "just baked", Name: "Just Baked Smart Bistro"},
	{Match: "bistro", Name: "Just Baked Smart Bistro"},
	{Match: "bella", Name: "Bella's Blends"},
	{Match: "tea co", Name: "TEA Co"},
	{Match: "caf", Name: "The CAF"},
	{Match: "chick", Name: "Chick-fil-A"},
	{Match: "starbucks", Name: "Starbucks"},
	{Match: "einstein", Name: "Einstein Bros Bagels"},
	{Match: "bagel", Name: "Einstein Bros Bagels"},
	{Match: "roscoe", Name: "Roscoe's Den"},
	{Match: "subway", Name: "Subway"},
	{Match: "taco", Name: "Tu Taco"},
	{Match: "ranch", Name: "Ranch Smokehouse"},
	{Match: "smokehouse", Name: "Ranch Smokehouse"},
	{Match: "market", Name: "Market"},
	{Match: "sushi", Name: "Sushi"},
}

// closedMarker finds the dedicated closed icon/label the current dining site
// renders instead of text.
const closedMarker = `span[class*="closed"], [class*="closed-icon"], [aria-label*="losed"]`

// leadingDate strips per-cell date fragments such as "Mon8/25" that the
// dining table prefixes onto its hour text.
var leadingDate = regexp.MustCompile(`^[A-Za-z]{3}\s*\d{1,2}/\d{1,2}`)

var clockFragment = regexp.MustCompile(`\d{1,2}:\d{2}`)

// diningReady are the content selectors the client-rendered dining table
// eventually exposes, most specific first.
var diningReady = []string{`td[data-label="Location"]`, "td[data-label]", "table"}

// Dining handles the current paired name/hours row layout, falling back to
// the legacy attribute-addressed layout when the paired structure parses to
// nothing.
type Dining struct {
	settle time.Duration
}

func (d *Dining) Fetch(pageCtx context.Context) (hours.RawHours, error) {
	document, err := snapshot(pageCtx, diningReady, d.settle)
	if err != nil {
		return hours.RawHours{}, err
	}
	raw := parsePairedRows(document)
	if raw.Empty() {
		raw = parseLabeledCells(document)
	}
	return raw, nil
}

// parsePairedRows reads tables where a location-name row is followed by an
// hours row. Day columns are resolved once from the header; hour text comes
// from the cell's accessibility label when present, visible text otherwise.
func parsePairedRows(document *goquery.Document) hours.RawHours {
	var raw hours.RawHours

	document.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		dayColumns, headerIndex := findDayHeader(rows)
		if len(dayColumns) == 0 {
			return
		}

		pendingName := ""
		rows.Each(func(rowIndex int, row *goquery.Selection) {
			if rowIndex <= headerIndex {
				return
			}
			cells := row.Find("td,th")
			if cells.Length() == 0 {
				return
			}

			if !isHoursRow(cells, dayColumns) {
				if name := collapse(cells.Eq(0).Text()); name != "" {
					pendingName = name
				}
				return
			}
			if pendingName == "" {
				return
			}

			section := raw.Section(diningRules.Resolve(pendingName))
			for columnIndex, day := range dayColumns {
				cell := cells.Eq(columnIndex)
				if cell.Length() == 0 {
					continue
				}
				section.Days[day] = hours.RawCell{Text: hourCellText(cell)}
			}
			pendingName = ""
		})
	})
	return raw
}

// findDayHeader locates the row naming at least three days and maps its
// column positions.
func findDayHeader(rows *goquery.Selection) (map[int]hours.Day, int) {
	dayColumns := map[int]hours.Day{}
	headerIndex := -1

	rows.EachWithBreak(func(rowIndex int, row *goquery.Selection) bool {
		candidate := map[int]hours.Day{}
		row.Find("td,th").Each(func(cellIndex int, cell *goquery.Selection) {
			if day, ok := hours.DayFromText(cell.Text()); ok {
				candidate[cellIndex] = day
			}
		})
		if len(candidate) >= 3 {
			dayColumns = candidate
			headerIndex = rowIndex
			return false
		}
		return true
	})
	return dayColumns, headerIndex
}

// isHoursRow reports whether any day-column cell carries clock text or a
// closed marker; everything else is treated as a location-name row.
func isHoursRow(cells *goquery.Selection, dayColumns map[int]hours.Day) bool {
	for columnIndex := range dayColumns {
		cell := cells.Eq(columnIndex)
		if cell.Length() == 0 {
			continue
		}
		if cell.Find(closedMarker).Length() > 0 {
			return true
		}
		text := cell.Text()
		if label, ok := cell.Attr("aria-label"); ok {
			text += " " + label
		}
		if clockFragment.MatchString(text) || strings.Contains(strings.ToLower(text), "closed") {
			return true
		}
	}
	return false
}

// hourCellText reads one dining cell: closed marker first, then the
// authoritative aria-label, then visible text.
func hourCellText(cell *goquery.Selection) string {
	if cell.Find(closedMarker).Length() > 0 {
		return hours.ClosedText
	}
	if label, ok := cell.Attr("aria-label"); ok && collapse(label) != "" {
		return cleanCellText(leadingDate.ReplaceAllString(collapse(label), ""))
	}
	return cleanCellText(leadingDate.ReplaceAllString(collapse(cell.Text()), ""))
}

// parseLabeledCells reads the legacy layout where cells are addressed by a
// data-label attribute instead of column position.
func parseLabeledCells(document *goquery.Document) hours.RawHours {
	var raw hours.RawHours

	document.Find(`td[data-label="Location"]`).Each(func(_ int, locationCell *goquery.Selection) {
		name := collapse(locationCell.Find("span").First().Text())
		if name == "" {
			name = collapse(locationCell.Text())
		}
		if name == "" {
			return
		}
		section := raw.Section(diningRules.Resolve(name))

		locationCell.Parent().Find("td[data-label]").Each(func(_ int, cell *goquery.Selection) {
			label, _ := cell.Attr("data-label")
			if strings.EqualFold(label, "location") {
				return
			}
			day, ok := hours.DayFromText(label)
			if !ok {
				return
			}
			section.Days[day] = hours.RawCell{Text: hourCellText(cell)}
		})
	})
	return raw
}
