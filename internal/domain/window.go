package domain

import (
	"fmt"
	"strings"
)

// Window identifies one glass region of a vehicle.
type Window string

const (
	Windscreen         Window = "windscreen"
	RearWindow         Window = "rear_window"
	FrontDriverDoor    Window = "front_driver_door"
	FrontPassengerDoor Window = "front_passenger_door"
	RearDriverDoor     Window = "rear_driver_door"
	RearPassengerDoor  Window = "rear_passenger_door"
	FrontDriverVent    Window = "front_driver_vent"
	FrontPassengerVent Window = "front_passenger_vent"
	RearDriverVent     Window = "rear_driver_vent"
	RearPassengerVent  Window = "rear_passenger_vent"
	DriverQuarter      Window = "driver_quarter"
	PassengerQuarter   Window = "passenger_quarter"
)

// Category groups windows that share labour and material rates.
type Category string

const (
	CategoryWindscreen Category = "windscreen"
	CategoryRear       Category = "rear"
	CategoryDoor       Category = "door"
	CategoryVent       Category = "vent"
	CategoryQuarter    Category = "quarter"
)

// WindowPriority is the published order used wherever a single window has to
// represent a whole selection. It is also the canonical ordering of a selection.
var WindowPriority = []Window{
	Windscreen,
	RearWindow,
	FrontDriverDoor,
	FrontPassengerDoor,
	RearDriverDoor,
	RearPassengerDoor,
	FrontDriverVent,
	FrontPassengerVent,
	RearDriverVent,
	RearPassengerVent,
	DriverQuarter,
	PassengerQuarter,
}

var windowCategories = map[Window]Category{
	Windscreen:         CategoryWindscreen,
	RearWindow:         CategoryRear,
	FrontDriverDoor:    CategoryDoor,
	FrontPassengerDoor: CategoryDoor,
	RearDriverDoor:     CategoryDoor,
	RearPassengerDoor:  CategoryDoor,
	FrontDriverVent:    CategoryVent,
	FrontPassengerVent: CategoryVent,
	RearDriverVent:     CategoryVent,
	RearPassengerVent:  CategoryVent,
	DriverQuarter:      CategoryQuarter,
	PassengerQuarter:   CategoryQuarter,
}

// Valid reports whether w is one of the twelve known windows.
func (w Window) Valid() bool {
	_, ok := windowCategories[w]
	return ok
}

// Category returns the rate category of w, or "" for unknown windows.
func (w Window) Category() Category {
	return windowCategories[w]
}

// ParseWindow normalizes and validates a window identifier.
func ParseWindow(raw string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(raw)))
	if !w.Valid() {
		return "", fmt.Errorf("unknown window %q", raw)
	}
	return w, nil
}

// Selection is an insertion-ordered set of windows.
type Selection []Window

// Contains reports whether w is selected.
func (s Selection) Contains(w Window) bool {
	for _, v := range s {
		if v == w {
			return true
		}
	}
	return false
}

// Toggle adds w when absent and removes it when present. The receiver is
// left untouched.
func (s Selection) Toggle(w Window) Selection {
	out := make(Selection, 0, len(s)+1)
	found := false
	for _, v := range s {
		if v == w {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, w)
	}
	return out
}

// Canonical returns the selection ordered by WindowPriority.
func (s Selection) Canonical() Selection {
	out := make(Selection, 0, len(s))
	for _, w := range WindowPriority {
		if s.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}

// Key joins the canonical selection with commas.
func (s Selection) Key() string {
	canonical := s.Canonical()
	parts := make([]string, len(canonical))
	for i, w := range canonical {
		parts[i] = string(w)
	}
	return strings.Join(parts, ",")
}

// NewSelection validates raw identifiers and drops duplicates, keeping the
// first occurrence.
func NewSelection(raw []string) (Selection, error) {
	out := make(Selection, 0, len(raw))
	for _, r := range raw {
		w, err := ParseWindow(r)
		if err != nil {
			return nil, err
		}
		if out.Contains(w) {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}
