// pkg/extract/tutoring.go
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

// Tutoring handles the disclosure/accordion page: each top-level disclosure
// is a subject, each nested table one course, each table row one session.
type Tutoring struct {
	settle time.Duration
}

func (t *Tutoring) Fetch(pageCtx context.Context) (hours.RawHours, error) {
	document, err := snapshot(pageCtx, []string{"details", ".accordion", "table"}, t.settle)
	if err != nil {
		return hours.RawHours{}, err
	}
	return parseSubjects(document), nil
}

func parseSubjects(document *goquery.Document) hours.RawHours {
	var raw hours.RawHours

	document.Find("details").Each(func(_ int, disclosure *goquery.Selection) {
		subject := collapse(disclosure.Find("summary").First().Text())
		if subject == "" {
			return
		}
		disclosure.Find("table").Each(func(tableIndex int, table *goquery.Selection) {
			course := collapse(table.Find("caption").First().Text())
			if course == "" {
				course = "General"
			}
			parseCourseTable(&raw, subject, course, table)
		})
	})
	return raw
}

// parseCourseTable folds over the ordered session rows carrying a lastDay
// accumulator: a blank day cell on a continuation row inherits the last
// non-blank day seen within this table.
func parseCourseTable(raw *hours.RawHours, subject, course string, table *goquery.Selection) {
	sectionName := subject + " — " + course
	var lastDay hours.Day

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dayText := collapse(cells.Eq(0).Text())
		timeText := collapse(cells.Eq(1).Text())
		location := ""
		if cells.Length() > 2 {
			location = collapse(cells.Eq(2).Text())
		}

		day := lastDay
		if dayText != "" && !strings.EqualFold(dayText, "tba") {
			parsed, ok := hours.DayFromText(dayText)
			if !ok {
				log.L().Debug("tutoring_day_unrecognized",
					zap.String("subject", subject),
					zap.String("course", course),
					zap.String("day", dayText))
				return
			}
			day = parsed
		}
		if day == "" {
			return
		}
		lastDay = day

		note := location
		if strings.EqualFold(dayText, "tba") || strings.EqualFold(timeText, "tba") {
			note = strings.TrimSpace(note + " TBA")
		}

		section := raw.Section(sectionName)
		existing, merged := section.Days[day], hours.RawCell{}
		if existing.Text != "" && existing.Text != hours.ClosedText {
			// Two sessions on the same day concatenate; the normalizer
			// splits multi-range text back apart.
			merged = hours.RawCell{Text: existing.Text + "  " + cleanCellText(timeText), Note: note}
		} else {
			merged = hours.RawCell{Text: cleanCellText(timeText), Note: note}
		}
		section.Days[day] = merged
	})
}
