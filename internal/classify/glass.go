package classify

import "github.com/Simplici0/glassquote/internal/domain"

// DefaultGlassTypeCode is returned when nothing in a selection is mapped.
const DefaultGlassTypeCode = "A"

var glassTypeCodes = map[domain.Window]string{
	domain.Windscreen:         "A",
	domain.RearWindow:         "B",
	domain.FrontDriverDoor:    "C",
	domain.FrontPassengerDoor: "D",
	domain.RearDriverDoor:     "E",
	domain.RearPassengerDoor:  "F",
	domain.FrontDriverVent:    "G",
	domain.FrontPassengerVent: "H",
	domain.RearDriverVent:     "I",
	domain.RearPassengerVent:  "J",
	domain.DriverQuarter:      "K",
	domain.PassengerQuarter:   "L",
}

// GlassTypeCode returns the code of the highest-priority selected window,
// following domain.WindowPriority rather than insertion order.
func GlassTypeCode(sel domain.Selection) string {
	for _, w := range domain.WindowPriority {
		if !sel.Contains(w) {
			continue
		}
		if code, ok := glassTypeCodes[w]; ok {
			return code
		}
	}
	return DefaultGlassTypeCode
}
