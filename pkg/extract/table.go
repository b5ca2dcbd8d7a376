// pkg/extract/table.go
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"campushours/pkg/hours"
	"campushours/pkg/log"
)

// Table handles the plain header-row layout the library and recreation
// pages share: first row names the days, each later row is one section with
// free-text hours per day column.
type Table struct {
	facility  hours.FacilityType
	ready     []string
	container string
	rules     CanonicalRules
	settle    time.Duration
}

func (t *Table) Fetch(pageCtx context.Context) (hours.RawHours, error) {
	document, err := snapshot(pageCtx, t.ready, t.settle)
	if err != nil {
		return hours.RawHours{}, err
	}
	return t.parse(document), nil
}

func (t *Table) parse(document *goquery.Document) hours.RawHours {
	scope := document.Selection
	if t.container != "" {
		if contained := document.Find(t.container); contained.Length() > 0 {
			scope = contained
		}
	}

	var raw hours.RawHours
	scope.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		days := headerDays(rows.Eq(0))

		rows.Each(func(rowIndex int, row *goquery.Selection) {
			if rowIndex == 0 {
				return
			}
			cells := row.Find("td,th")
			if cells.Length() < 2 {
				return
			}

			label := collapse(cells.Eq(0).Text())
			if label == "" || strings.Contains(strings.ToLower(label), "hours of operation") {
				return
			}
			section := raw.Section(t.rules.Resolve(label))

			cells.Each(func(cellIndex int, cell *goquery.Selection) {
				if cellIndex == 0 || cellIndex > len(days) {
					return
				}
				day := days[cellIndex-1]
				if day == "" {
					return
				}
				section.Days[day] = hours.RawCell{Text: cleanCellText(cell.Text())}
			})
		})
	})
	if raw.Empty() {
		log.L().Debug("no_hour_tables_matched",
			zap.String("facility", string(t.facility)),
			zap.String("container", t.container))
	}
	return raw
}
