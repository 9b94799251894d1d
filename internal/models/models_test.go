package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:00", 480, false},
		{"17:30", 1050, false},
		{"00:00", 0, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"8:00", 0, true},
		{"08:60", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q): expected error=%v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestInterval_HalfOpen(t *testing.T) {
	base := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	a := Interval{Start: base, End: base.Add(2 * time.Hour)}
	b := Interval{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)}

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Error("expected touching intervals not to overlap")
	}
	if _, ok := a.Intersect(b); ok {
		t.Error("expected empty intersection for touching intervals")
	}

	c := Interval{Start: base.Add(time.Hour), End: base.Add(4 * time.Hour)}
	got, ok := a.Intersect(c)
	if !ok || got.Duration() != time.Hour {
		t.Errorf("expected 1h intersection, got %v ok=%v", got, ok)
	}
	if !c.Contains(b) {
		t.Error("expected c to contain b")
	}

	_, err := NewInterval(base, base)
	var invalid *InvalidIntervalError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidIntervalError for empty interval, got %v", err)
	}
}

func TestPriority_Rank(t *testing.T) {
	order := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("expected %s to outrank %s", order[i], order[i-1])
		}
	}
	if Priority("bogus").Rank() != PriorityLow.Rank() {
		t.Error("expected unknown priority to rank as low")
	}
}

func TestJob_Duration(t *testing.T) {
	j := Job{EstimatedHours: 1.5}
	if j.Duration() != 90*time.Minute {
		t.Errorf("expected 90m, got %v", j.Duration())
	}
	if !StatusCompleted.Terminal() || StatusScheduled.Terminal() {
		t.Error("unexpected terminal status classification")
	}
}

func TestResources_Matching(t *testing.T) {
	s := StaffMember{Skills: []string{"binding"}, JobTypeCapabilities: []string{"offset"}}
	if !s.CanPerform("offset") || !s.CanPerform("binding") || s.CanPerform("digital") {
		t.Error("unexpected CanPerform result")
	}

	m := Machine{Capabilities: []string{"cmyk", "a3", "duplex"}}
	if !m.Supports([]string{"a3", "duplex"}) {
		t.Error("expected superset to be supported")
	}
	if m.Supports([]string{"a3", "large-format"}) {
		t.Error("expected missing capability to fail")
	}
	if !m.Supports(nil) {
		t.Error("expected empty requirement to be supported")
	}
}

func TestScheduleEvent_Resources(t *testing.T) {
	e := ScheduleEvent{StaffID: "s1", MachineID: "m1"}
	keys := e.Resources()
	if len(keys) != 2 || keys[0] != StaffKey("s1") || keys[1] != MachineKey("m1") {
		t.Errorf("unexpected keys %v", keys)
	}
	if keys[0].String() != "staff:s1" {
		t.Errorf("unexpected key string %q", keys[0].String())
	}
}
