package canvas

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// FillAlpha returns the alpha channel of a CSS colour expression. Only rgba() and
// 8-digit hex carry alpha; anything else, including unparseable input, counts as opaque.
func FillAlpha(style string) float64 {
	s := strings.ToLower(strings.TrimSpace(style))

	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[5:len(s)-1], ",")
		if len(parts) < 4 {
			return 1
		}
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || math.IsNaN(a) || math.IsInf(a, 0) {
			return 1
		}
		return a
	case strings.HasPrefix(s, "#") && len(s) == 9:
		v, err := strconv.ParseUint(s[7:9], 16, 8)
		if err != nil {
			return 1
		}
		return float64(v) / 255
	default:
		return 1
	}
}

// ParseColor converts a CSS colour expression to an NRGBA colour. Supported forms are
// #rgb, #rrggbb, #rrggbbaa, rgb() and rgba(). Unknown input yields opaque black.
func ParseColor(style string) color.NRGBA {
	s := strings.ToLower(strings.TrimSpace(style))
	black := color.NRGBA{A: 0xff}

	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 && len(hex) != 8 {
			return black
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return black
		}
		if len(hex) == 6 {
			return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
		}
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	case strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba("):
		open := strings.IndexByte(s, '(')
		if !strings.HasSuffix(s, ")") {
			return black
		}
		parts := strings.Split(s[open+1:len(s)-1], ",")
		if len(parts) < 3 {
			return black
		}
		c := black
		c.R = channel(parts[0])
		c.G = channel(parts[1])
		c.B = channel(parts[2])
		if len(parts) >= 4 {
			c.A = uint8(math.Round(clamp01(FillAlpha(s)) * 255))
		}
		return c
	default:
		return black
	}
}

// FormatRGB renders components in [0,1] as a #rrggbb fill style
func FormatRGB(r, g, b float64) string {
	return fmt.Sprintf("#%02x%02x%02x", to8(r), to8(g), to8(b))
}

// FormatRGBA renders components in [0,1] as an rgba() fill style
func FormatRGBA(r, g, b, a float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", to8(r), to8(g), to8(b),
		strconv.FormatFloat(clamp01(a), 'f', -1, 64))
}

func channel(s string) uint8 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
