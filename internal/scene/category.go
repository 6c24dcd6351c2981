// Package scene holds the data model shared by the sampling pipeline: scene
// categories, records, poses and the per-sample error taxonomy.
package scene

import (
	"fmt"
	"strings"
)

// Category is the kind of synthetic scene, by object count and motion.
type Category int

const (
	SingleStatic Category = iota
	SingleDynamic
	MultiStatic
	MultiDynamic
)

// Categories lists every category in configuration order.
var Categories = []Category{SingleStatic, SingleDynamic, MultiStatic, MultiDynamic}

var categoryNames = [...]string{
	SingleStatic:  "single_static",
	SingleDynamic: "single_dynamic",
	MultiStatic:   "multi_static",
	MultiDynamic:  "multi_dynamic",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Multi reports whether scenes of this category contain more than one object.
func (c Category) Multi() bool {
	return c == MultiStatic || c == MultiDynamic
}

// Dynamic reports whether objects move during the scene.
func (c Category) Dynamic() bool {
	return c == SingleDynamic || c == MultiDynamic
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	return c >= SingleStatic && c <= MultiDynamic
}

// ParseCategory accepts the snake_case name as well as the dashed form.
func ParseCategory(s string) (Category, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scene category %q", s)
}

// MarshalText lets categories appear as names in YAML and log output.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid scene category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
