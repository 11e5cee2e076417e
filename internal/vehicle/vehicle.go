// Package vehicle resolves registration numbers to vehicle details.
package vehicle

import (
	"context"
	"errors"

	"github.com/Simplici0/glassquote/internal/domain"
)

var ErrNotFound = errors.New("vehicle not found")

// Lookup resolves a registration to vehicle details.
type Lookup interface {
	Lookup(ctx context.Context, registration string) (domain.VehicleDetails, error)
}

// Static serves a fixed set of vehicles keyed by normalized registration.
type Static map[string]domain.VehicleDetails

// DemoVehicles is used when no vehicle API is configured.
var DemoVehicles = Static{
	"AB12CDE": {
		Registration: "AB12CDE",
		Manufacturer: "BMW",
		Model:        "X5 E53",
		Year:         "2004",
		Colour:       "Black",
		Type:         "Car",
		Style:        "SUV",
		DoorPlan:     "5 door estate",
	},
	"XY70ZZZ": {
		Registration: "XY70ZZZ",
		Manufacturer: "Volkswagen",
		Model:        "Golf",
		Year:         "2020",
		Colour:       "Silver",
		Type:         "Car",
		Style:        "Hatchback",
		DoorPlan:     "5 door hatchback",
	},
	"LM65FGH": {
		Registration: "LM65FGH",
		Manufacturer: "Ford",
		Model:        "Transit",
		Year:         "2015",
		Colour:       "White",
		Type:         "Van",
		Style:        "Panel van",
		DoorPlan:     "4 door van",
	},
}

func (s Static) Lookup(ctx context.Context, registration string) (domain.VehicleDetails, error) {
	if err := ctx.Err(); err != nil {
		return domain.VehicleDetails{}, err
	}
	v, ok := s[domain.NormalizeRegistration(registration)]
	if !ok {
		return domain.VehicleDetails{}, ErrNotFound
	}
	return v, nil
}
