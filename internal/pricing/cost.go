package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Simplici0/glassquote/internal/domain"
)

var (
	ErrEmptySelection  = errors.New("no windows selected")
	ErrMissingDamage   = errors.New("selected window has no damage recorded")
	ErrDuplicateWindow = errors.New("window selected more than once")
	ErrUnknownDamage   = errors.New("unknown damage kind")
)

// Rates holds the grade-neutral cost parameters of the cost model.
type Rates struct {
	Labour    map[domain.Category]float64
	Materials map[domain.Category]float64
	// ExtendedServiceIncrement is added to labour for each window after the first.
	ExtendedServiceIncrement float64
	// LabourCap bounds the total labour cost of a job.
	LabourCap      float64
	DamageLabour   map[domain.DamageKind]float64
	Specifications map[string]float64
}

// DefaultRates are the rates used by the quote calculation service.
var DefaultRates = Rates{
	Labour: map[domain.Category]float64{
		domain.CategoryWindscreen: 140,
		domain.CategoryRear:       120,
		domain.CategoryDoor:       90,
		domain.CategoryVent:       70,
		domain.CategoryQuarter:    80,
	},
	Materials: map[domain.Category]float64{
		domain.CategoryWindscreen: 120,
		domain.CategoryRear:       110,
		domain.CategoryDoor:       65,
		domain.CategoryVent:       40,
		domain.CategoryQuarter:    55,
	},
	ExtendedServiceIncrement: 45,
	LabourCap:                320,
	DamageLabour: map[domain.DamageKind]float64{
		domain.DamageSmashed:         20,
		domain.DamageLeaking:         15,
		domain.DamageFaultyMechanism: 35,
	},
	Specifications: map[string]float64{
		"rain_sensor":      25,
		"heated":           40,
		"heads_up_display": 60,
		"acoustic":         30,
		"camera_bracket":   50,
		"tint":             20,
		"antenna":          15,
		"humidity_sensor":  20,
	},
}

// Job describes the work to be costed.
type Job struct {
	Selection     domain.Selection
	Damage        domain.DamageRecord
	Modifications []string
}

// Estimate computes the grade-neutral cost breakdown of job using DefaultRates.
func Estimate(job Job) (domain.CostBreakdown, error) {
	return DefaultRates.Estimate(job)
}

// Estimate computes the grade-neutral cost breakdown of job. Labour is the
// most expensive selected category plus a fixed increment per extra window
// and damage surcharges, never above LabourCap.
func (r Rates) Estimate(job Job) (domain.CostBreakdown, error) {
	if len(job.Selection) == 0 {
		return domain.CostBreakdown{}, ErrEmptySelection
	}

	var baseLabour, surcharges, materials float64
	perWindow := make([]domain.WindowCost, 0, len(job.Selection))
	seen := make(map[domain.Window]bool, len(job.Selection))
	for _, w := range job.Selection {
		if !w.Valid() {
			return domain.CostBreakdown{}, fmt.Errorf("estimate %q: unknown window", w)
		}
		if seen[w] {
			return domain.CostBreakdown{}, fmt.Errorf("estimate %s: %w", w, ErrDuplicateWindow)
		}
		seen[w] = true
		damage, ok := job.Damage[w]
		if !ok {
			return domain.CostBreakdown{}, fmt.Errorf("estimate %s: %w", w, ErrMissingDamage)
		}
		if !damage.Valid() {
			return domain.CostBreakdown{}, fmt.Errorf("estimate %s %q: %w", w, damage, ErrUnknownDamage)
		}

		category := w.Category()
		baseLabour = math.Max(baseLabour, r.Labour[category])
		surcharge := r.DamageLabour[damage]
		surcharges += surcharge
		cost := r.Materials[category]
		materials += cost

		perWindow = append(perWindow, domain.WindowCost{
			Window:          w,
			Damage:          damage,
			MaterialsCost:   cost,
			LabourSurcharge: surcharge,
		})
	}

	labour := baseLabour + r.ExtendedServiceIncrement*float64(len(job.Selection)-1) + surcharges
	if r.LabourCap > 0 && labour > r.LabourCap {
		labour = r.LabourCap
	}

	return domain.CostBreakdown{
		LabourCost:         labour,
		BaseMaterialsCost:  materials,
		SpecificationsCost: r.specificationsCost(job.Modifications),
		PerWindow:          perWindow,
	}, nil
}

// specificationsCost sums flat surcharges; unknown and repeated
// modifications add nothing.
func (r Rates) specificationsCost(mods []string) float64 {
	seen := make(map[string]bool, len(mods))
	total := 0.0
	for _, m := range mods {
		key := NormalizeModification(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		total += r.Specifications[key]
	}
	return total
}

// NormalizeModification lower-cases a modification name and joins words with
// underscores.
func NormalizeModification(m string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(m, "-", " "))), "_")
}
