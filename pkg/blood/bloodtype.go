// Package blood holds the pure rule tables of the donation center: blood
// type normalization, ABO/Rh donor compatibility, component shelf life, and
// donor eligibility arithmetic. Everything in this package is stateless.
package blood

import (
	"fmt"
	"strings"
)

// BloodType is one of the eight ABO/Rh blood groups.
type BloodType string

const (
	APos  BloodType = "A+"
	ANeg  BloodType = "A-"
	BPos  BloodType = "B+"
	BNeg  BloodType = "B-"
	ABPos BloodType = "AB+"
	ABNeg BloodType = "AB-"
	OPos  BloodType = "O+"
	ONeg  BloodType = "O-"
)

// AllBloodTypes lists the supported groups in display order.
var AllBloodTypes = []BloodType{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

var validBloodTypes = map[BloodType]bool{
	APos: true, ANeg: true, BPos: true, BNeg: true,
	ABPos: true, ABNeg: true, OPos: true, ONeg: true,
}

// ParseBloodType normalizes (trim, uppercase) and validates a blood group
// string coming from any boundary.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !validBloodTypes[bt] {
		return "", fmt.Errorf("unknown blood type: %q", s)
	}
	return bt, nil
}

// compatibleDonors maps a recipient group to the donor groups whose blood it
// can receive, per standard ABO/Rh transfusion rules.
var compatibleDonors = map[BloodType][]BloodType{
	ABPos: {ABPos, ABNeg, APos, ANeg, BPos, BNeg, OPos, ONeg},
	ABNeg: {ABNeg, ANeg, BNeg, ONeg},
	APos:  {APos, ANeg, OPos, ONeg},
	ANeg:  {ANeg, ONeg},
	BPos:  {BPos, BNeg, OPos, ONeg},
	BNeg:  {BNeg, ONeg},
	OPos:  {OPos, ONeg},
	ONeg:  {ONeg},
}

// CompatibleDonors returns the donor blood types a recipient of the given
// group may receive, in a fixed order. Unknown or malformed input yields an
// empty slice; callers must treat that as "unsupported type", not as "no
// candidates found".
func CompatibleDonors(recipient string) []BloodType {
	bt, err := ParseBloodType(recipient)
	if err != nil {
		return nil
	}
	donors := compatibleDonors[bt]
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out
}

// CanDonate reports whether donor blood is transfusable to the recipient.
func CanDonate(donor, recipient BloodType) bool {
	for _, d := range compatibleDonors[recipient] {
		if d == donor {
			return true
		}
	}
	return false
}
