package blood

import "time"

// Donor age bounds, inclusive.
const (
	MinDonorAge = 18
	MaxDonorAge = 60
)

// donationIntervalDays is the minimum gap before a donor may donate again,
// keyed by the component last donated.
var donationIntervalDays = map[ComponentType]int{
	Plasma:     14,
	Platelets:  14,
	RedCells:   112,
	WholeBlood: 56,
}

// defaultIntervalDays applies when the last-donated component is not
// recognized.
const defaultIntervalDays = 56

// Age returns the donor's age in whole years at now, accounting for whether
// the birthday month/day has been reached yet.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// IsEligibleAge reports whether a donor born at dob is within the accepted
// age range at now. Both bounds are inclusive at day granularity: eligibility
// starts on the 18th birthday and ends the day after the 60th, which whole
// year arithmetic cannot express (a donor stays "60" for a full year).
func IsEligibleAge(dob, now time.Time) bool {
	day := TruncateToDay(now)
	return !day.Before(TruncateToDay(dob.AddDate(MinDonorAge, 0, 0))) &&
		!day.After(TruncateToDay(dob.AddDate(MaxDonorAge, 0, 0)))
}

// NextEligibleDate returns the earliest date a donor may donate again after
// donating the given component at donatedAt. Unrecognized components fall
// back to the whole-blood interval.
func NextEligibleDate(ct ComponentType, donatedAt time.Time) time.Time {
	days, ok := donationIntervalDays[ct]
	if !ok {
		days = defaultIntervalDays
	}
	return donatedAt.AddDate(0, 0, days)
}

// TruncateToDay normalizes a timestamp to midnight UTC. All registration
// gating compares dates at this granularity to avoid same-day boundary
// errors.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
