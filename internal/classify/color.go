package classify

import "strings"

var colorSeparators = strings.NewReplacer(" ", "_", "-", "_")

// normalizeColor folds "Light Green", "light-green" and "light_green" together.
func normalizeColor(s string) string {
	return colorSeparators.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// ColorCode returns the 2-character colour code, CL when unknown.
func (c *Classifier) ColorCode(color string) string {
	if code, ok := c.colors[normalizeColor(color)]; ok {
		return code
	}
	return DefaultColorCode
}
