// Package attendance records working sessions from client heartbeats and
// builds the monthly time sheet.
package attendance

import "time"

// Session is a contiguous span of activity for one user.
type Session struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	StartedAt  time.Time `json:"startedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Member is a user listed on the time sheet.
type Member struct {
	UserID int64
	Name   string
	Role   string
}

// UserAttendance is one time sheet row. Days maps day of month to seconds.
type UserAttendance struct {
	UserID       int64         `json:"userId"`
	Name         string        `json:"name"`
	Role         string        `json:"role"`
	Days         map[int]int64 `json:"days"`
	TotalSeconds int64         `json:"totalSeconds"`
	WorkDays     int           `json:"workDays"`
}

// Report is the monthly time sheet grouped by role name.
type Report struct {
	Month       int                         `json:"month"`
	Year        int                         `json:"year"`
	DaysInMonth int                         `json:"daysInMonth"`
	Roles       []string                    `json:"roles"`
	Data        map[string][]UserAttendance `json:"data"`
}

// HeartbeatResult tells the client whether the beat was stored.
type HeartbeatResult struct {
	Recorded bool     `json:"recorded"`
	Session  *Session `json:"session,omitempty"`
}
