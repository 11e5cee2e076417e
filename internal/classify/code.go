package classify

// Assemble concatenates the four fragments. Fragments come from validated
// tables, so the result is always CodeLength characters.
func Assemble(manufacturer, model, glassType, color string) string {
	return manufacturer + model + glassType + color
}
