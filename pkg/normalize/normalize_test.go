// pkg/normalize/normalize_test.go
package normalize

import (
	"os"
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

func rawWith(section string, day hours.Day, text string) hours.RawHours {
	var raw hours.RawHours
	raw.Section(section).Days[day] = hours.RawCell{Text: text}
	return raw
}

func TestNormalizeClosedVariants(t *testing.T) {
	for _, text := range []string{"Closed", "CLOSED", "closed for break", "Not Open", "n/a", "-", "Unavailable"} {
		entries := Normalize(hours.Library, rawWith("Main Library", hours.Monday, text))
		require.Len(t, entries, 1, text)
		assert.True(t, entries[0].Closed, text)
		assert.Nil(t, entries[0].Open, text)
		assert.Nil(t, entries[0].Close, text)
	}
}

func TestNormalizeSingleRange(t *testing.T) {
	entries := Normalize(hours.Recreation, rawWith("CHP (Fitness Center)", hours.Tuesday, "6:00a - 10:00p"))
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, hours.Recreation, entry.Facility)
	assert.Equal(t, "CHP (Fitness Center)", entry.Section)
	assert.Equal(t, hours.Tuesday, entry.Day)
	require.NotNil(t, entry.Open)
	require.NotNil(t, entry.Close)
	assert.Equal(t, "6:00 AM", *entry.Open)
	assert.Equal(t, "10:00 PM", *entry.Close)
	assert.False(t, entry.Closed)
}

func TestNormalizeMultipleRangesInOrder(t *testing.T) {
	entries := Normalize(hours.Dining,
		rawWith("The Caf", hours.Wednesday, "7:00a - 9:00a  11:30a - 1:30p  5:00p - 7:00p"))
	require.Len(t, entries, 3)

	wantOpens := []string{"7:00 AM", "11:30 AM", "5:00 PM"}
	wantCloses := []string{"9:00 AM", "1:30 PM", "7:00 PM"}
	for index, entry := range entries {
		require.NotNil(t, entry.Open)
		require.NotNil(t, entry.Close)
		assert.Equal(t, wantOpens[index], *entry.Open)
		assert.Equal(t, wantCloses[index], *entry.Close)

		openMinutes, ok := MinutesOfDay(*entry.Open)
		require.True(t, ok)
		closeMinutes, ok := MinutesOfDay(*entry.Close)
		require.True(t, ok)
		assert.Less(t, openMinutes, closeMinutes)
	}
}

func TestNormalizeSpellingVariantsConverge(t *testing.T) {
	variants := []string{
		"7:00a - 9:00p",
		"7:00 AM - 9:00 PM",
		"7 a.m. - 9 p.m.",
		"7am-9pm",
	}
	for _, text := range variants {
		entries := Normalize(hours.Library, rawWith("Main Library", hours.Monday, text))
		require.Len(t, entries, 1, text)
		require.NotNil(t, entries[0].Open, text)
		require.NotNil(t, entries[0].Close, text)
		assert.Equal(t, "7:00 AM", *entries[0].Open, text)
		assert.Equal(t, "9:00 PM", *entries[0].Close, text)
	}
}

func TestNormalizeNoonAndMidnight(t *testing.T) {
	entries := Normalize(hours.Recreation, rawWith("Swimming Pool", hours.Sunday, "Noon - 8:00p"))
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Open)
	assert.Equal(t, "12:00 PM", *entries[0].Open)
	assert.Equal(t, "8:00 PM", *entries[0].Close)

	// A range ending at noon is valid: 11:00 AM < 12:00 PM.
	entries = Normalize(hours.Dining, rawWith("Starbucks", hours.Monday, "11:00a - 12:00p"))
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Close)
	assert.Equal(t, "12:00 PM", *entries[0].Close)
}

func TestNormalizeMidnightCloseIsEndOfDay(t *testing.T) {
	for _, text := range []string{"8:00p - Midnight", "8:00 PM - 12:00 AM"} {
		entries := Normalize(hours.Recreation, rawWith("CHP (Fitness Center)", hours.Friday, text))
		require.Len(t, entries, 1, text)
		require.NotNil(t, entries[0].Open, text)
		require.NotNil(t, entries[0].Close, text)
		assert.Equal(t, "8:00 PM", *entries[0].Open, text)
		assert.Equal(t, "12:00 AM", *entries[0].Close, text)
		assert.False(t, entries[0].Closed, text)
	}

	// Midnight as an open time still means the start of the day.
	entries := Normalize(hours.Recreation, rawWith("CHP (Fitness Center)", hours.Saturday, "Midnight - 6:00a"))
	require.Len(t, entries, 1)
	assert.Equal(t, "12:00 AM", *entries[0].Open)
	assert.Equal(t, "6:00 AM", *entries[0].Close)
}

func TestNormalizeInvalidRangeDropped(t *testing.T) {
	// An overnight spelling parses to close <= open and is dropped rather
	// than stored inverted.
	entries := Normalize(hours.Dining, rawWith("The Caf", hours.Friday, "9:00p - 7:00a"))
	assert.Empty(t, entries)
}

func TestNormalizeDegenerateFallback(t *testing.T) {
	entries := Normalize(hours.Shuttle, rawWith("Ram Tram", hours.Monday, "See posted schedule"))
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Open)
	assert.Equal(t, "See posted schedule", *entries[0].Open)
	assert.Nil(t, entries[0].Close)
	assert.False(t, entries[0].Closed)
}

func TestNormalizeDeduplicatesIdenticalRanges(t *testing.T) {
	entries := Normalize(hours.Tutoring,
		rawWith("Math — College Algebra", hours.Thursday, "2:00p - 4:00p  2:00 PM - 4:00 PM"))
	require.Len(t, entries, 1)
	assert.Equal(t, "2:00 PM", *entries[0].Open)
}

func TestNormalizeOrderingAcrossSectionsAndDays(t *testing.T) {
	var raw hours.RawHours
	raw.Section("IT Desk").Days[hours.Friday] = hours.RawCell{Text: "8:00a - 5:00p"}
	raw.Section("IT Desk").Days[hours.Monday] = hours.RawCell{Text: "8:00a - 5:00p"}
	raw.Section("Main Library").Days[hours.Sunday] = hours.RawCell{Text: "Closed"}

	entries := Normalize(hours.Library, raw)
	require.Len(t, entries, 3)
	assert.Equal(t, "IT Desk", entries[0].Section)
	assert.Equal(t, hours.Monday, entries[0].Day, "days within a section come out Sunday..Saturday")
	assert.Equal(t, hours.Friday, entries[1].Day)
	assert.Equal(t, "Main Library", entries[2].Section, "section source order wins over alphabet")
}

func TestNormalizeCarriesRouteAndNote(t *testing.T) {
	var raw hours.RawHours
	raw.Section("Ram Tram").Days[hours.Monday] = hours.RawCell{
		Text:  "7:00a - 7:00p",
		Route: "Gold Route",
	}
	raw.Section("Ram Tram").Days[hours.Tuesday] = hours.RawCell{
		Text: "TBA",
		Note: "TBA",
	}

	entries := Normalize(hours.Shuttle, raw)
	require.Len(t, entries, 2)
	assert.Equal(t, "Gold Route", entries[0].Route)
	assert.Equal(t, "TBA", entries[1].Notes)
}

func TestNormalizeIdempotentOnCanonicalText(t *testing.T) {
	first := Normalize(hours.Library, rawWith("Main Library", hours.Monday, "7:30a - 11:00p"))
	require.Len(t, first, 1)

	canonical := *first[0].Open + " - " + *first[0].Close
	second := Normalize(hours.Library, rawWith("Main Library", hours.Monday, canonical))
	require.Len(t, second, 1)
	assert.Equal(t, *first[0].Open, *second[0].Open)
	assert.Equal(t, *first[0].Close, *second[0].Close)
}

func TestMinutesOfDay(t *testing.T) {
	cases := map[string]int{
		"12:00 AM": 0,
		"Midnight": 0,
		"Noon":     720,
		"12:30 PM": 750,
		"11:59 PM": 1439,
		"6:00a":    360,
	}
	for token, want := range cases {
		got, ok := MinutesOfDay(token)
		require.True(t, ok, token)
		assert.Equal(t, want, got, token)
	}

	_, ok := MinutesOfDay("sometime")
	assert.False(t, ok)
}
