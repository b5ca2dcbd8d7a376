// pkg/hours/hours.go
package hours

import (
	"fmt"
	"strings"
)

// FacilityType identifies one of the five supported hour sources.
type FacilityType string

const (
	Library    FacilityType = "library"
	Recreation FacilityType = "recreation"
	Dining     FacilityType = "dining"
	Shuttle    FacilityType = "shuttle"
	Tutoring   FacilityType = "tutoring"
)

// AllFacilityTypes returns the closed set of facility types in run order.
func AllFacilityTypes() []FacilityType {
	return []FacilityType{Library, Recreation, Dining, Shuttle, Tutoring}
}

// ParseFacilityType validates a user-supplied facility name. Unknown values
// are rejected here, before any browser resource is touched.
func ParseFacilityType(raw string) (FacilityType, error) {
	candidate := FacilityType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllFacilityTypes() {
		if candidate == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown facility type %q", raw)
}

// Day is a day of the week in storage form.
type Day string

const (
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
)

// DayOrder lists the days Sunday first, matching the source pages and the
// storage sort order.
var DayOrder = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var dayFragments = []struct {
	fragment string
	day      Day
}{
	{"sun", Sunday},
	{"mon", Monday},
	{"tue", Tuesday},
	{"wed", Wednesday},
	{"thu", Thursday},
	{"fri", Friday},
	{"sat", Saturday},
}

// DayFromText recognizes a day name inside noisy header text such as
// "Tuesday 5/27" or "Intersession TUE 5/27" by substring match.
func DayFromText(text string) (Day, bool) {
	lowered := strings.ToLower(text)
	for _, candidate := range dayFragments {
		if strings.Contains(lowered, candidate.fragment) {
			return candidate.day, true
		}
	}
	return "", false
}

// Index returns the position of the day within DayOrder, Sunday = 0.
func (d Day) Index() int {
	for position, day := range DayOrder {
		if day == d {
			return position
		}
	}
	return -1
}

// Entry is one canonical hour record ready for storage. Closed entries carry
// no times; a degenerate entry may carry an open time with no close time.
type Entry struct {
	Facility FacilityType
	Section  string
	Day      Day
	Open     *string
	Close    *string
	Closed   bool
	Route    string
	Notes    string
}

// Key is the duplicate-suppression identity within one write batch.
func (e Entry) Key() string {
	open, close := "", ""
	if e.Open != nil {
		open = *e.Open
	}
	if e.Close != nil {
		close = *e.Close
	}
	return strings.Join([]string{e.Section, string(e.Day), open, close}, "|")
}

// ClosedText is the literal every closed/empty/dash source cell collapses to
// at extraction time.
const ClosedText = "Closed"

// RawCell is the unnormalized text for one (section, day) pair, plus the
// route and note labels some sources embed next to the hours.
type RawCell struct {
	Text  string
	Route string
	Note  string
}

// RawSection groups the cells of one named section.
type RawSection struct {
	Name string
	Days map[Day]RawCell
}

// RawHours is the extractor's intermediate output: ordered sections, each
// mapping day to free-text hours.
type RawHours struct {
	Sections []RawSection
}

// Section returns the section with the given name, appending it if absent,
// so extractors preserve source order while filling cells.
func (r *RawHours) Section(name string) *RawSection {
	for index := range r.Sections {
		if r.Sections[index].Name == name {
			return &r.Sections[index]
		}
	}
	r.Sections = append(r.Sections, RawSection{Name: name, Days: map[Day]RawCell{}})
	return &r.Sections[len(r.Sections)-1]
}

// Empty reports whether extraction found no cells at all. An empty result is
// a signal distinct from an error and must never reach the store.
func (r RawHours) Empty() bool {
	for _, section := range r.Sections {
		if len(section.Days) > 0 {
			return false
		}
	}
	return true
}

// Facility is one scrape target, created at initialization and immutable.
type Facility struct {
	Type FacilityType
	Name string
	URL  string
}

// DefaultFacilities returns the deployed source set.
func DefaultFacilities() []Facility {
	return []Facility{
		{Type: Library, Name: "Porter Henderson Library", URL: "https://www.angelo.edu/library/hours.php"},
		{Type: Recreation, Name: "Recreation Center", URL: "https://www.angelo.edu/life-on-campus/play/university-recreation/urec-hours-of-operation.php"},
		{Type: Dining, Name: "Dining Services", URL: "https://new.dineoncampus.com/Angelo/hours-of-operation"},
		{Type: Shuttle, Name: "Ram Tram", URL: "https://www.angelo.edu/life-on-campus/live/parking-and-transportation/ram-tram.php"},
		{Type: Tutoring, Name: "Tutoring Center", URL: "https://www.angelo.edu/current-students/tutoring/"},
	}
}
