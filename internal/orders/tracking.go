package orders

import (
	"slices"
	"strings"
)

// Tracking row statuses.
const (
	TrackingValid     = "valid"
	TrackingDuplicate = "duplicate"
	TrackingError     = "error"
	TrackingUnchecked = "unchecked"
)

// TrackingRow is one line of a bulk tracking upload.
type TrackingRow struct {
	OrderID        string `json:"orderId"`
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
	// CanonicalID is the stored order id matched case-insensitively.
	CanonicalID string `json:"canonicalOrderId,omitempty"`
}

// TrackingCounts tallies validated rows by status.
type TrackingCounts struct {
	Valid     int `json:"valid"`
	Duplicate int `json:"duplicate"`
	Error     int `json:"error"`
	Unchecked int `json:"unchecked"`
}

// TrackingResult is the response of validate and apply.
type TrackingResult struct {
	Rows    []TrackingRow  `json:"rows"`
	Counts  TrackingCounts `json:"counts"`
	Applied int            `json:"applied"`
}

// TrackingLookup resolves an order id, case-insensitively, to its stored id
// and existing tracking numbers. ok is false when the order does not exist.
type TrackingLookup func(orderID string) (canonical string, existing []string, ok bool)

// ValidateTrackingRows classifies each row. Rows are checked in order so a
// pair repeated later in the batch is reported as a duplicate.
func ValidateTrackingRows(rows []TrackingRow, lookup TrackingLookup) TrackingResult {
	result := TrackingResult{Rows: make([]TrackingRow, len(rows))}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		row.OrderID = strings.TrimSpace(row.OrderID)
		row.TrackingNumber = strings.TrimSpace(row.TrackingNumber)
		row.Status, row.Message, row.CanonicalID = "", "", ""

		switch {
		case row.OrderID == "" && row.TrackingNumber == "":
			row.Status = TrackingUnchecked
		case row.OrderID == "" || row.TrackingNumber == "":
			row.Status, row.Message = TrackingError, "incomplete"
		default:
			canonical, existing, ok := lookup(row.OrderID)
			if !ok {
				row.Status, row.Message = TrackingError, "order not found"
				break
			}
			row.CanonicalID = canonical
			key := canonical + "\x00" + row.TrackingNumber
			switch {
			case slices.Contains(existing, row.TrackingNumber):
				row.Status, row.Message = TrackingDuplicate, "tracking number already on order"
			case hasKey(seen, key):
				row.Status, row.Message = TrackingDuplicate, "duplicate in batch"
			default:
				row.Status = TrackingValid
			}
			seen[key] = struct{}{}
		}

		switch row.Status {
		case TrackingValid:
			result.Counts.Valid++
		case TrackingDuplicate:
			result.Counts.Duplicate++
		case TrackingError:
			result.Counts.Error++
		case TrackingUnchecked:
			result.Counts.Unchecked++
		}
		result.Rows[i] = row
	}
	return result
}

// ParseTrackingPaste reads "orderId<TAB or comma>tracking" lines as pasted
// from a spreadsheet. Blank lines are dropped; line length is not limited.
func ParseTrackingPaste(text string) []TrackingRow {
	var rows []TrackingRow
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sep := "\t"
		if !strings.Contains(line, sep) {
			sep = ","
		}
		orderID, tracking, _ := strings.Cut(line, sep)
		rows = append(rows, TrackingRow{OrderID: strings.TrimSpace(orderID), TrackingNumber: strings.TrimSpace(tracking)})
	}
	return rows
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
