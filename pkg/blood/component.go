package blood

import (
	"fmt"
	"strings"
	"time"
)

// ComponentType is the blood fraction a unit or donation consists of.
type ComponentType string

const (
	WholeBlood ComponentType = "whole_blood"
	Plasma     ComponentType = "plasma"
	Platelets  ComponentType = "platelets"
	RedCells   ComponentType = "red_cells"
)

// AllComponentTypes lists the supported components.
var AllComponentTypes = []ComponentType{WholeBlood, Plasma, Platelets, RedCells}

var componentAliases = map[string]ComponentType{
	"whole_blood": WholeBlood,
	"wholeblood":  WholeBlood,
	"whole blood": WholeBlood,
	"plasma":      Plasma,
	"platelets":   Platelets,
	"platelet":    Platelets,
	"red_cells":   RedCells,
	"redcells":    RedCells,
	"red cells":   RedCells,
}

// ParseComponentType normalizes and validates a component string.
func ParseComponentType(s string) (ComponentType, error) {
	ct, ok := componentAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown component type: %q", s)
	}
	return ct, nil
}

// shelfLifeDays is the fixed shelf life per component once a unit enters
// inventory.
var shelfLifeDays = map[ComponentType]int{
	WholeBlood: 35,
	RedCells:   35,
	Plasma:     365,
	Platelets:  5,
}

// ShelfLifeDays returns the shelf life for a component in days.
func ShelfLifeDays(ct ComponentType) (int, error) {
	days, ok := shelfLifeDays[ct]
	if !ok {
		return 0, fmt.Errorf("unknown component type: %q", ct)
	}
	return days, nil
}

// ExpiryDate computes the date a unit added at addedAt expires. An
// unrecognized component is a hard error, never a silent default.
func ExpiryDate(ct ComponentType, addedAt time.Time) (time.Time, error) {
	days, err := ShelfLifeDays(ct)
	if err != nil {
		return time.Time{}, err
	}
	return addedAt.AddDate(0, 0, days), nil
}
