package attendance

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// MonthBounds returns the half-open [start, end) of a month in loc.
func MonthBounds(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// BuildReport distributes sessions over the days of the month. Sessions are
// clipped to the month and split at local midnight; each day is capped at
// 24h. Every member appears, with or without time.
func BuildReport(year, month int, loc *time.Location, members []Member, sessions []Session) Report {
	start, end := MonthBounds(year, month, loc)
	days := end.AddDate(0, 0, -1).Day()

	rows := make(map[int64]*UserAttendance, len(members))
	for _, m := range members {
		rows[m.UserID] = &UserAttendance{UserID: m.UserID, Name: m.Name, Role: m.Role, Days: map[int]int64{}}
	}
	for _, s := range sessions {
		row, ok := rows[s.UserID]
		if !ok {
			continue
		}
		from, to := s.StartedAt.In(loc), s.LastSeenAt.In(loc)
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		for from.Before(to) {
			y, m, d := from.Date()
			midnight := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
			stop := to
			if midnight.Before(stop) {
				stop = midnight
			}
			row.Days[d] += int64(stop.Sub(from) / time.Second)
			from = stop
		}
	}

	report := Report{Month: month, Year: year, DaysInMonth: days, Roles: []string{}, Data: map[string][]UserAttendance{}}
	for _, m := range members {
		row := rows[m.UserID]
		for d, secs := range row.Days {
			if secs > secondsPerDay {
				secs = secondsPerDay
				row.Days[d] = secs
			}
			if secs > 0 {
				row.WorkDays++
			}
			row.TotalSeconds += secs
		}
		if _, seen := report.Data[m.Role]; !seen {
			report.Roles = append(report.Roles, m.Role)
		}
		report.Data[m.Role] = append(report.Data[m.Role], *row)
	}
	sort.Strings(report.Roles)
	for _, users := range report.Data {
		sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	}
	return report
}

// FormatHoursMinutes renders seconds as HH:MM, or "-" when there is no time.
func FormatHoursMinutes(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, seconds%3600/60)
}

// Header is the time sheet column row for a month of n days.
func Header(n int) []string {
	h := []string{"ชื่อ", "ตำแหน่ง"}
	for d := 1; d <= n; d++ {
		h = append(h, strconv.Itoa(d))
	}
	return append(h, "รวม (ชม.)", "วันทำงาน")
}

// Rows flattens the report in role then name order.
func Rows(r Report) [][]string {
	var out [][]string
	for _, role := range r.Roles {
		for _, u := range r.Data[role] {
			row := []string{u.Name, role}
			for d := 1; d <= r.DaysInMonth; d++ {
				row = append(row, FormatHoursMinutes(u.Days[d]))
			}
			row = append(row, FormatHoursMinutes(u.TotalSeconds), strconv.Itoa(u.WorkDays))
			out = append(out, row)
		}
	}
	return out
}
