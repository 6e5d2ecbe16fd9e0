package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lookupFrom(orders map[string][]string) TrackingLookup {
	return func(id string) (string, []string, bool) {
		for canonical, existing := range orders {
			if strings.EqualFold(canonical, id) {
				return canonical, existing, true
			}
		}
		return "", nil, false
	}
}

func TestValidateTrackingRows(t *testing.T) {
	lookup := lookupFrom(map[string][]string{"250101-00001": {"TH100"}, "250101-00002": nil})
	rows := []TrackingRow{
		{},
		{OrderID: "250101-00001"},
		{TrackingNumber: "TH1"},
		{OrderID: "999", TrackingNumber: "TH1"},
		{OrderID: "250101-00001", TrackingNumber: "TH100"},
		{OrderID: " 250101-00002 ", TrackingNumber: "KRY1"},
		{OrderID: "250101-00002", TrackingNumber: "KRY1"},
		{OrderID: "250101-00001", TrackingNumber: "KRY1"},
	}
	got := ValidateTrackingRows(rows, lookup)

	statuses := make([]string, len(got.Rows))
	for i, r := range got.Rows {
		statuses[i] = r.Status
	}
	require.Equal(t, []string{
		TrackingUnchecked,
		TrackingError,
		TrackingError,
		TrackingError,
		TrackingDuplicate,
		TrackingValid,
		TrackingDuplicate,
		TrackingValid,
	}, statuses)
	require.Equal(t, "incomplete", got.Rows[1].Message)
	require.Equal(t, "order not found", got.Rows[3].Message)
	require.Equal(t, "duplicate in batch", got.Rows[6].Message)
	require.Equal(t, "250101-00002", got.Rows[5].OrderID)
	require.Equal(t, TrackingCounts{Valid: 2, Duplicate: 2, Error: 3, Unchecked: 1}, got.Counts)
}

func TestValidateTrackingMatchesOrderIDCaseInsensitively(t *testing.T) {
	got := ValidateTrackingRows([]TrackingRow{{OrderID: "abc-1", TrackingNumber: "T"}}, lookupFrom(map[string][]string{"ABC-1": nil}))
	require.Equal(t, TrackingValid, got.Rows[0].Status)
	require.Equal(t, "ABC-1", got.Rows[0].CanonicalID)
}

func TestParseTrackingPaste(t *testing.T) {
	text := "250101-00001\tTH1\r\n\n250101-00002, KRY2\n250101-00003\n"
	require.Equal(t, []TrackingRow{
		{OrderID: "250101-00001", TrackingNumber: "TH1"},
		{OrderID: "250101-00002", TrackingNumber: "KRY2"},
		{OrderID: "250101-00003"},
	}, ParseTrackingPaste(text))
	require.Empty(t, ParseTrackingPaste("  \n"))

	long := strings.Repeat("X", 70*1024)
	rows := ParseTrackingPaste("250101-00001\t" + long + "\n250101-00002\tTH2")
	require.Len(t, rows, 2)
	require.Len(t, rows[0].TrackingNumber, len(long))
	require.Equal(t, "TH2", rows[1].TrackingNumber)
}
