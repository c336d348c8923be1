package interp

import (
	"fmt"
	"math"
	"strings"
)

// RGBA is a color with components in [0, 1], used only while interpolating
// between two hex-color control points.
type RGBA struct {
	R, G, B, A float64
}

// ParseHexColor parses "#RGB", "#RGBA", "#RRGGBB", or "#RRGGBBAA".
func ParseHexColor(s string) (RGBA, bool) {
	if !strings.HasPrefix(s, "#") {
		return RGBA{}, false
	}
	hex := s[1:]

	var r, g, b uint32
	a := uint32(255)
	switch len(hex) {
	case 3:
		if !parseHex(hex[0:1], &r) || !parseHex(hex[1:2], &g) || !parseHex(hex[2:3], &b) {
			return RGBA{}, false
		}
		r, g, b = r*17, g*17, b*17
	case 4:
		if !parseHex(hex[0:1], &r) || !parseHex(hex[1:2], &g) || !parseHex(hex[2:3], &b) || !parseHex(hex[3:4], &a) {
			return RGBA{}, false
		}
		r, g, b, a = r*17, g*17, b*17, a*17
	case 6:
		if !parseHex(hex[0:2], &r) || !parseHex(hex[2:4], &g) || !parseHex(hex[4:6], &b) {
			return RGBA{}, false
		}
	case 8:
		if !parseHex(hex[0:2], &r) || !parseHex(hex[2:4], &g) || !parseHex(hex[4:6], &b) || !parseHex(hex[6:8], &a) {
			return RGBA{}, false
		}
	default:
		return RGBA{}, false
	}

	return RGBA{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}, true
}

func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}

// Format renders the color as "#rrggbb", or "#rrggbbaa" when not fully
// opaque.
func (c RGBA) Format() string {
	r := channelByte(c.R)
	g := channelByte(c.G)
	b := channelByte(c.B)
	a := channelByte(c.A)
	if a == 255 {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}

func channelByte(f float64) uint8 {
	return uint8(math.Round(math.Min(1, math.Max(0, f)) * 255))
}

// lerpColor interpolates component-wise between two colors.
func lerpColor(c1, c2 RGBA, t float64) RGBA {
	return RGBA{
		R: c1.R + (c2.R-c1.R)*t,
		G: c1.G + (c2.G-c1.G)*t,
		B: c1.B + (c2.B-c1.B)*t,
		A: c1.A + (c2.A-c1.A)*t,
	}
}
