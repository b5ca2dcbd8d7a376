// pkg/normalize/normalize.go
package normalize

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"campushours/pkg/hours"
	"campushours/pkg/log"
)

// closedKeywords flag a cell as closed/unavailable regardless of case.
var closedKeywords = []string{"closed", "not open", "not available", "unavailable", "n/a"}

// clockToken accepts the 12-hour spellings seen across the source pages:
// "7:00a", "7:00 AM", "7:00 a.m.", "7 pm", "Noon".
const clockToken = `(?:\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?|[ap])|noon|midnight)`

var rangePattern = regexp.MustCompile(`(?i)(` + clockToken + `)\s*[-–—]\s*(` + clockToken + `)`)

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapse(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func isClosedText(text string) bool {
	lowered := strings.ToLower(text)
	if lowered == "-" || lowered == "" {
		return true
	}
	for _, keyword := range closedKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// Normalize converts a facility's raw section/day/free-text mapping into
// validated canonical entries, in section order then Sunday..Saturday, ready
// for a full-replace write.
func Normalize(facilityType hours.FacilityType, raw hours.RawHours) []hours.Entry {
	var entries []hours.Entry
	seen := map[string]struct{}{}

	appendEntry := func(entry hours.Entry) {
		if _, duplicate := seen[entry.Key()]; duplicate {
			return
		}
		seen[entry.Key()] = struct{}{}
		entries = append(entries, entry)
	}

	for _, section := range raw.Sections {
		for _, day := range hours.DayOrder {
			cell, ok := section.Days[day]
			if !ok {
				continue
			}
			for _, candidate := range normalizeCell(facilityType, section.Name, day, cell) {
				appendEntry(candidate)
			}
		}
	}
	return entries
}

// normalizeCell yields the candidate tuples for one (section, day) text:
// exactly one closed tuple, one tuple per time-range match in textual
// order, or one degenerate tuple for unparsed non-empty text. A close time
// of midnight counts as end of day; other ranges whose computed end is not
// after their start are dropped, with a warning.
func normalizeCell(facilityType hours.FacilityType, sectionName string, day hours.Day, cell hours.RawCell) []hours.Entry {
	text := collapse(cell.Text)
	base := hours.Entry{
		Facility: facilityType,
		Section:  sectionName,
		Day:      day,
		Route:    cell.Route,
		Notes:    cell.Note,
	}

	if text == "" {
		return nil
	}
	if isClosedText(text) {
		closed := base
		closed.Closed = true
		return []hours.Entry{closed}
	}

	matches := rangePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		degenerate := base
		degenerate.Open = &text
		log.L().Warn("hours_text_unparsed",
			zap.String("facility", string(facilityType)),
			zap.String("section", sectionName),
			zap.String("day", string(day)),
			zap.String("text", text))
		return []hours.Entry{degenerate}
	}

	var result []hours.Entry
	for _, match := range matches {
		openText, openMinutes, openOk := canonicalClock(match[1])
		closeText, closeMinutes, closeOk := canonicalClock(match[2])
		if !openOk || !closeOk {
			continue
		}
		if closeMinutes == 0 {
			// Midnight as a close time is the end of the day, not its start.
			closeMinutes = 24 * 60
		}
		if closeMinutes <= openMinutes {
			log.L().Warn("hours_range_invalid",
				zap.String("facility", string(facilityType)),
				zap.String("section", sectionName),
				zap.String("day", string(day)),
				zap.String("text", match[0]))
			continue
		}
		entry := base
		entry.Open = &openText
		entry.Close = &closeText
		result = append(result, entry)
	}
	return result
}

var clockLayouts = []string{"3:04 PM", "3:04PM", "3 PM", "3PM"}

// canonicalClock parses one flexible 12-hour token and returns the
// canonical "3:04 PM" spelling plus minutes since midnight, noon and
// midnight aware (12:00 PM = 720, 12:00 AM = 0).
func canonicalClock(token string) (string, int, bool) {
	cleaned := strings.ToUpper(collapse(token))
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	switch cleaned {
	case "NOON":
		cleaned = "12 PM"
	case "MIDNIGHT":
		cleaned = "12 AM"
	}
	// Bare meridiem letters: "7:00A" -> "7:00 AM".
	if strings.HasSuffix(cleaned, "A") && !strings.HasSuffix(cleaned, "AM") {
		cleaned = strings.TrimSuffix(cleaned, "A") + " AM"
	} else if strings.HasSuffix(cleaned, "P") && !strings.HasSuffix(cleaned, "PM") {
		cleaned = strings.TrimSuffix(cleaned, "P") + " PM"
	}
	cleaned = collapse(strings.ReplaceAll(cleaned, "AM", " AM"))
	cleaned = collapse(strings.ReplaceAll(cleaned, "PM", " PM"))

	for _, layout := range clockLayouts {
		parsed, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		return parsed.Format("3:04 PM"), parsed.Hour()*60 + parsed.Minute(), true
	}
	return "", 0, false
}

// MinutesOfDay exposes the clock conversion for validation and tests.
func MinutesOfDay(token string) (int, bool) {
	_, minutes, ok := canonicalClock(token)
	return minutes, ok
}
