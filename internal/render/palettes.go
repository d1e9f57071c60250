package render

import (
	"fmt"
	"sort"
)

// RGB is one palette color.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color as an ffmpeg-style 0xRRGGBB literal.
func (c RGB) Hex() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

// palettes enumerates the recognized gradient palettes: the elegant
// originals plus the vibrant short-form set.
var palettes = map[string][3]RGB{
	"sunset":        {{255, 94, 77}, {255, 184, 140}, {253, 216, 193}},
	"ocean":         {{26, 42, 108}, {58, 96, 115}, {148, 187, 233}},
	"forest":        {{22, 56, 48}, {46, 125, 50}, {129, 199, 132}},
	"lavender":      {{94, 53, 177}, {155, 81, 224}, {206, 147, 216}},
	"rose":          {{136, 14, 79}, {194, 24, 91}, {233, 30, 99}},
	"golden":        {{255, 160, 0}, {255, 213, 79}, {255, 245, 157}},
	"midnight":      {{13, 27, 42}, {27, 38, 59}, {65, 90, 119}},
	"peach":         {{255, 138, 101}, {255, 209, 163}, {255, 234, 213}},
	"mint":          {{0, 137, 123}, {0, 188, 212}, {128, 222, 234}},
	"autumn":        {{191, 54, 12}, {230, 81, 0}, {255, 138, 101}},
	"tiktok_cyber":  {{255, 0, 128}, {128, 0, 255}, {0, 255, 255}},
	"tiktok_sunset": {{255, 50, 100}, {255, 150, 50}, {255, 220, 100}},
	"tiktok_ocean":  {{0, 150, 200}, {0, 200, 255}, {100, 220, 255}},
	"tiktok_berry":  {{100, 0, 150}, {200, 50, 150}, {255, 100, 150}},
	"tiktok_fire":   {{150, 0, 0}, {255, 100, 0}, {255, 200, 0}},
	"tiktok_neon":   {{20, 0, 40}, {60, 0, 120}, {0, 255, 200}},
}

// PaletteColors returns the gradient colors for a recognized palette name.
func PaletteColors(name string) ([3]RGB, bool) {
	colors, ok := palettes[name]
	return colors, ok
}

// PaletteNames returns the sorted list of recognized palette names.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
