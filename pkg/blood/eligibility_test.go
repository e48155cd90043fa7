package blood

import (
	"testing"
	"time"
)

var eligNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestAge_BirthdayNotReached(t *testing.T) {
	dob := time.Date(1996, 6, 16, 0, 0, 0, 0, time.UTC)
	if got := Age(dob, eligNow); got != 29 {
		t.Errorf("Age = %d, want 29", got)
	}
}

func TestAge_BirthdayReached(t *testing.T) {
	dob := time.Date(1996, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := Age(dob, eligNow); got != 30 {
		t.Errorf("Age = %d, want 30", got)
	}
}

func TestIsEligibleAge_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		dob  time.Time
		want bool
	}{
		{"18 years minus one day", eligNow.AddDate(-18, 0, 1), false},
		{"exactly 18 years", eligNow.AddDate(-18, 0, 0), true},
		{"exactly 60 years", eligNow.AddDate(-60, 0, 0), true},
		{"60 years and one day", eligNow.AddDate(-60, 0, -1), false},
		{"60 years, born later in the day", eligNow.AddDate(-60, 0, 0).Add(10 * time.Hour), true},
		{"30 years", eligNow.AddDate(-30, 0, 0), true},
	}
	for _, tc := range cases {
		if got := IsEligibleAge(tc.dob, eligNow); got != tc.want {
			t.Errorf("%s: IsEligibleAge = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNextEligibleDate_Intervals(t *testing.T) {
	donated := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	cases := map[ComponentType]int{
		Plasma:     14,
		Platelets:  14,
		RedCells:   112,
		WholeBlood: 56,
	}
	for ct, days := range cases {
		got := NextEligibleDate(ct, donated)
		want := donated.AddDate(0, 0, days)
		if !got.Equal(want) {
			t.Errorf("NextEligibleDate(%s) = %v, want %v", ct, got, want)
		}
	}
}

func TestNextEligibleDate_UnknownDefaults56(t *testing.T) {
	donated := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	got := NextEligibleDate(ComponentType("serum"), donated)
	if !got.Equal(donated.AddDate(0, 0, 56)) {
		t.Errorf("unknown component should default to 56 days, got %v", got)
	}
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2026, 6, 15, 23, 59, 59, 999, time.FixedZone("X", 3600))
	got := TruncateToDay(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Location() != time.UTC {
		t.Errorf("TruncateToDay = %v, want midnight UTC", got)
	}
}
