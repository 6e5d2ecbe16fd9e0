package attendance

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, bangkok)
}

func TestBuildReportSplitsAtMidnight(t *testing.T) {
	members := []Member{{UserID: 1, Name: "Somchai", Role: "Telesale"}}
	sessions := []Session{
		{UserID: 1, StartedAt: at(3, 22, 0), LastSeenAt: at(4, 1, 30)},
		{UserID: 1, StartedAt: at(4, 9, 0), LastSeenAt: at(4, 9, 45)},
	}
	r := BuildReport(2025, 3, bangkok, members, sessions)

	row := r.Data["Telesale"][0]
	require.Equal(t, int64(2*3600), row.Days[3])
	require.Equal(t, int64(90*60+45*60), row.Days[4])
	require.Equal(t, int64(2*3600+135*60), row.TotalSeconds)
	require.Equal(t, 2, row.WorkDays)
	require.Equal(t, 31, r.DaysInMonth)
}

func TestBuildReportClipsToMonthAndClampsDay(t *testing.T) {
	members := []Member{{UserID: 1, Name: "A", Role: "R"}}
	sessions := []Session{
		{UserID: 1, StartedAt: time.Date(2025, 2, 28, 20, 0, 0, 0, bangkok), LastSeenAt: at(1, 2, 0)},
		{UserID: 1, StartedAt: at(2, 0, 0), LastSeenAt: at(2, 20, 0)},
		{UserID: 1, StartedAt: at(2, 10, 0), LastSeenAt: at(2, 23, 0)},
		{UserID: 99, StartedAt: at(2, 10, 0), LastSeenAt: at(2, 11, 0)},
	}
	r := BuildReport(2025, 3, bangkok, members, sessions)
	row := r.Data["R"][0]
	require.Equal(t, int64(2*3600), row.Days[1])
	require.Equal(t, int64(secondsPerDay), row.Days[2])
	require.Equal(t, 2, row.WorkDays)
}

func TestBuildReportSortsRolesAndNames(t *testing.T) {
	members := []Member{
		{UserID: 1, Name: "Wichai", Role: "Telesale"},
		{UserID: 2, Name: "Anong", Role: "Telesale"},
		{UserID: 3, Name: "Boss", Role: "Admin"},
	}
	r := BuildReport(2025, 2, bangkok, members, nil)
	require.Equal(t, []string{"Admin", "Telesale"}, r.Roles)
	require.Equal(t, "Anong", r.Data["Telesale"][0].Name)
	require.Equal(t, 28, r.DaysInMonth)
	require.Zero(t, r.Data["Admin"][0].WorkDays)
}

func TestFormatHoursMinutes(t *testing.T) {
	require.Equal(t, "-", FormatHoursMinutes(0))
	require.Equal(t, "00:01", FormatHoursMinutes(60))
	require.Equal(t, "08:30", FormatHoursMinutes(8*3600+30*60+59))
	require.Equal(t, "124:00", FormatHoursMinutes(124*3600))
}

func TestWriteCSV(t *testing.T) {
	members := []Member{{UserID: 1, Name: "Somchai", Role: "Telesale"}}
	sessions := []Session{{UserID: 1, StartedAt: at(2, 9, 0), LastSeenAt: at(2, 17, 30)}}
	r := BuildReport(2025, 3, bangkok, members, sessions)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(r, &buf))
	out := strings.TrimPrefix(buf.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(out), "\r\n")
	require.Len(t, lines, 2)

	header := strings.Split(lines[0], ",")
	require.Len(t, header, 2+31+2)
	require.Equal(t, "1", header[2])

	cells := strings.Split(lines[1], ",")
	require.Equal(t, "Somchai", cells[0])
	require.Equal(t, "-", cells[2])
	require.Equal(t, "08:30", cells[3])
	require.Equal(t, "08:30", cells[len(cells)-2])
	require.Equal(t, "1", cells[len(cells)-1])
}

func TestWriteXLSX(t *testing.T) {
	r := BuildReport(2025, 3, bangkok, []Member{{UserID: 1, Name: "A", Role: "R"}}, nil)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(r, &buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}
