// Package classify encodes a vehicle and glass configuration into the
// fixed-width classification code handed to the glass suppliers.
//
// Every lookup degrades to a documented default instead of failing:
// unknown manufacturers and models encode as "00", an empty or unmapped
// selection encodes as windscreen ("A"), and unknown colours as clear ("CL").
package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Simplici0/glassquote/internal/domain"
)

const (
	// UnknownCode is used for manufacturers and models missing from the tables.
	UnknownCode = "00"
	// DefaultColorCode is used for colours missing from the table.
	DefaultColorCode = "CL"
	// CodeLength is the length of every classification code.
	CodeLength = 7
)

// Classifier resolves names to code fragments using immutable tables. It is
// safe for concurrent use.
type Classifier struct {
	manufacturers map[string]string
	models        map[string]string
	colors        map[string]string
}

// Default is built from DefaultTables.
var Default = MustNew(DefaultTables())

// New builds a Classifier. Every code must be exactly two characters so the
// assembled code keeps its fixed width.
func New(t Tables) (*Classifier, error) {
	manufacturers, err := buildTable("manufacturers", t.Manufacturers, normalizeName)
	if err != nil {
		return nil, err
	}
	models, err := buildTable("models", t.Models, normalizeName)
	if err != nil {
		return nil, err
	}
	colors, err := buildTable("colors", t.Colors, normalizeColor)
	if err != nil {
		return nil, err
	}
	return &Classifier{manufacturers: manufacturers, models: models, colors: colors}, nil
}

// MustNew is like New but panics on invalid tables.
func MustNew(t Tables) *Classifier {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadTables reads tables from a JSON file. Sections missing from the file
// fall back to the built-in data.
func LoadTables(path string) (Tables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read classification tables: %w", err)
	}

	var t Tables
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tables{}, fmt.Errorf("decode classification tables: %w", err)
	}

	def := DefaultTables()
	if len(t.Manufacturers) == 0 {
		t.Manufacturers = def.Manufacturers
	}
	if len(t.Models) == 0 {
		t.Models = def.Models
	}
	if len(t.Colors) == 0 {
		t.Colors = def.Colors
	}
	return t, nil
}

func validCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z') {
			return false
		}
	}
	return true
}

func buildTable(name string, entries []Entry, normalize func(string) string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for i, e := range entries {
		if !validCode(e.Code) {
			return nil, fmt.Errorf("%s[%d] %q: code %q must be 2 ASCII letters or digits", name, i, e.Key, e.Code)
		}
		key := normalize(e.Key)
		if key == "" {
			return nil, fmt.Errorf("%s[%d]: empty key", name, i)
		}
		out[key] = e.Code
	}
	return out, nil
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ManufacturerCode returns the 2-character manufacturer code.
func (c *Classifier) ManufacturerCode(manufacturer string) string {
	if code, ok := c.manufacturers[normalizeName(manufacturer)]; ok {
		return code
	}
	return UnknownCode
}

// ModelCode returns the 2-character model code. Models are keyed by name
// alone, independent of manufacturer.
func (c *Classifier) ModelCode(model string) string {
	if code, ok := c.models[normalizeName(model)]; ok {
		return code
	}
	return UnknownCode
}

// Code assembles the classification code for a vehicle, window selection
// and glass colour.
func (c *Classifier) Code(manufacturer, model string, sel domain.Selection, color string) string {
	return Assemble(
		c.ManufacturerCode(manufacturer),
		c.ModelCode(model),
		GlassTypeCode(sel),
		c.ColorCode(color),
	)
}

// Code assembles a classification code using the Default tables.
func Code(manufacturer, model string, sel domain.Selection, color string) string {
	return Default.Code(manufacturer, model, sel, color)
}
