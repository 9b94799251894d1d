package models

import "time"

// WeeklyWindow is a recurring availability window, e.g. Monday 08:00-12:00
type WeeklyWindow struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
}

// StaffMember is a read-only catalog record of a person who can run jobs
type StaffMember struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Skills              []string       `json:"skills,omitempty"`
	JobTypeCapabilities []string       `json:"job_type_capabilities,omitempty"`
	Availability        []WeeklyWindow `json:"availability,omitempty"`
	BlockedTimes        []Interval     `json:"blocked_times,omitempty"`
}

// CanPerform reports whether the job type appears in the staff member's capabilities or skills
func (s StaffMember) CanPerform(jobType string) bool {
	for _, c := range s.JobTypeCapabilities {
		if c == jobType {
			return true
		}
	}
	for _, c := range s.Skills {
		if c == jobType {
			return true
		}
	}
	return false
}

// MachineStatus represents the state of a machine
type MachineStatus string

const (
	MachineOperational MachineStatus = "operational"
	MachineMaintenance MachineStatus = "maintenance"
	MachineOffline     MachineStatus = "offline"
)

// Machine is a read-only catalog record of a press, cutter, binder...
type Machine struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Capabilities        []string      `json:"capabilities,omitempty"`
	Status              MachineStatus `json:"status"`
	MaintenanceSchedule []Interval    `json:"maintenance_schedule,omitempty"`
	HoursPerDay         float64       `json:"hours_per_day,omitempty"`
}

// Supports reports whether the machine capabilities are a superset of required
func (m Machine) Supports(required []string) bool {
	for _, r := range required {
		found := false
		for _, c := range m.Capabilities {
			if c == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DailyCap returns the daily usage cap, zero meaning uncapped
func (m Machine) DailyCap() time.Duration {
	if m.HoursPerDay <= 0 {
		return 0
	}
	return time.Duration(m.HoursPerDay * float64(time.Hour))
}

// DayHours are the opening hours of one weekday
type DayHours struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	IsOpen bool   `json:"is_open"`
}

// Holiday closes one calendar day. Date is "YYYY-MM-DD" in business local time.
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// BusinessHoursConfig keyed by weekday
type BusinessHoursConfig struct {
	Days     map[time.Weekday]DayHours `json:"days"`
	Holidays []Holiday                 `json:"holidays,omitempty"`
}

// StandardWeek returns Mon-Fri open between start and end, weekends closed
func StandardWeek(start, end string) BusinessHoursConfig {
	cfg := BusinessHoursConfig{Days: make(map[time.Weekday]DayHours, 7)}
	for d := time.Sunday; d <= time.Saturday; d++ {
		open := d != time.Saturday && d != time.Sunday
		cfg.Days[d] = DayHours{Start: start, End: end, IsOpen: open}
	}
	return cfg
}
