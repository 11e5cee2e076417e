// Package domain holds the value types shared by the classification, pricing
// and session packages.
package domain

import (
	"fmt"
	"strings"
)

// VehicleDetails is the immutable result of a registration lookup.
type VehicleDetails struct {
	Registration string `json:"registration"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	Colour       string `json:"colour"`
	Type         string `json:"type"`
	Style        string `json:"style"`
	DoorPlan     string `json:"door_plan"`
}

// NormalizeRegistration upper-cases a registration and removes whitespace.
func NormalizeRegistration(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), ""))
}

// DamageKind describes what happened to a window.
type DamageKind string

const (
	DamageSmashed         DamageKind = "smashed"
	DamageCracked         DamageKind = "cracked"
	DamageScratched       DamageKind = "scratched"
	DamageChipped         DamageKind = "chipped"
	DamageLeaking         DamageKind = "leaking"
	DamageFaultyMechanism DamageKind = "faulty_mechanism"
)

var damageKinds = map[DamageKind]bool{
	DamageSmashed:         true,
	DamageCracked:         true,
	DamageScratched:       true,
	DamageChipped:         true,
	DamageLeaking:         true,
	DamageFaultyMechanism: true,
}

func (k DamageKind) Valid() bool { return damageKinds[k] }

// ParseDamageKind accepts either the identifier ("faulty_mechanism") or the
// display name ("Faulty Mechanism").
func ParseDamageKind(raw string) (DamageKind, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, " ", "_")
	k := DamageKind(norm)
	if !damageKinds[k] {
		return "", fmt.Errorf("unknown damage kind %q", raw)
	}
	return k, nil
}

// DamageRecord maps each selected window to its damage.
type DamageRecord map[Window]DamageKind

// Clone returns an independent copy of d.
func (d DamageRecord) Clone() DamageRecord {
	out := make(DamageRecord, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Covers reports whether every window in sel has a damage entry.
func (d DamageRecord) Covers(sel Selection) bool {
	for _, w := range sel {
		if _, ok := d[w]; !ok {
			return false
		}
	}
	return true
}

// Grade is the glass quality tier. The zero value means no choice yet.
type Grade string

const (
	GradeUnset Grade = ""
	GradeOEM   Grade = "OEM"
	GradeOEE   Grade = "OEE"
)

// Multiplier returns the materials multiplier for g.
func (g Grade) Multiplier() float64 {
	if g == GradeOEM {
		return 1.4
	}
	return 1.0
}

// ParseGrade parses "oem" or "oee" in any case.
func ParseGrade(raw string) (Grade, error) {
	switch Grade(strings.ToUpper(strings.TrimSpace(raw))) {
	case GradeOEM:
		return GradeOEM, nil
	case GradeOEE:
		return GradeOEE, nil
	}
	return GradeUnset, fmt.Errorf("unknown grade %q", raw)
}

// DeliveryType selects the fitting speed.
type DeliveryType string

const (
	DeliveryStandard DeliveryType = "standard"
	DeliveryExpress  DeliveryType = "express"
)

// ParseDeliveryType parses "standard" or "express"; empty means standard.
func ParseDeliveryType(raw string) (DeliveryType, error) {
	switch DeliveryType(strings.ToLower(strings.TrimSpace(raw))) {
	case DeliveryStandard, "":
		return DeliveryStandard, nil
	case DeliveryExpress:
		return DeliveryExpress, nil
	}
	return "", fmt.Errorf("unknown delivery type %q", raw)
}

// GlassProperties are the user's choices about the replacement glass.
type GlassProperties struct {
	Grade         Grade    `json:"grade"`
	Color         string   `json:"color"`
	Stripe        string   `json:"stripe"`
	Modifications []string `json:"modifications"`
}

// WindowCost is the grade-neutral cost attributed to one window.
type WindowCost struct {
	Window          Window     `json:"window"`
	Damage          DamageKind `json:"damage"`
	MaterialsCost   float64    `json:"materials_cost"`
	LabourSurcharge float64    `json:"labour_surcharge"`
}

// CostBreakdown is the grade-neutral base cost of a job. It never includes
// the grade multiplier.
type CostBreakdown struct {
	LabourCost         float64      `json:"labour_cost"`
	BaseMaterialsCost  float64      `json:"base_materials_cost"`
	SpecificationsCost float64      `json:"specifications_cost"`
	PerWindow          []WindowCost `json:"per_window_costs"`
}
