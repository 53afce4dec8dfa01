// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pack

import (
	"fmt"
	"math"
	"strconv"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"gonum.org/v1/plot/palette"
)

// ColorScheme decides the itemRgb value given to the members of a component
// when colorizing.
type ColorScheme uint8

const (
	// PaletteColors cycles through Palette by component index.
	PaletteColors ColorScheme = iota
	// HSVColors steps the hue by the golden ratio for each component, giving a
	// sequence of well-separated colors that never repeats exactly.
	HSVColors
	// HashColors picks a Palette entry from a fingerprint of the member names,
	// so a component keeps its color when other components come and go.
	HashColors
)

// Palette is the default set of component colors: red, green, blue,
// dark-green, magenta, cyan, orange, sky-blue, dark-yellow, brown.
var Palette = [...]string{
	"255,0,0",
	"0,255,0",
	"0,0,255",
	"58,134,47",
	"255,0,255",
	"0,255,255",
	"255,128,0",
	"51,153,255",
	"118,115,15",
	"172,126,0",
}

func (s ColorScheme) String() string {
	switch s {
	case PaletteColors:
		return "palette"
	case HSVColors:
		return "hsv"
	case HashColors:
		return "hash"
	}
	return fmt.Sprintf("ColorScheme(%d)", uint8(s))
}

// ParseColorScheme parses the output of ColorScheme.String.
func ParseColorScheme(s string) (ColorScheme, error) {
	switch s {
	case "palette", "":
		return PaletteColors, nil
	case "hsv":
		return HSVColors, nil
	case "hash":
		return HashColors, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("pack: unknown color scheme %q", s))
}

// goldenRatioConjugate spaces consecutive hues as far apart as possible.
const goldenRatioConjugate = 0.618033988749895

// ComponentColor returns the itemRgb string for the index'th component in
// output order.  comp is only consulted by HashColors.
func ComponentColor(s ColorScheme, m *ComponentMap, comp Component, index int) string {
	switch s {
	case HSVColors:
		_, h := math.Modf(float64(index) * goldenRatioConjugate)
		r, g, b, _ := palette.HSVA{H: h, S: 0.85, V: 0.9, A: 1}.RGBA()
		return rgbString(r>>8, g>>8, b>>8)
	case HashColors:
		return Palette[memberFingerprint(m, comp)%uint64(len(Palette))]
	}
	return Palette[index%len(Palette)]
}

func memberFingerprint(m *ComponentMap, comp Component) uint64 {
	var buf []byte
	for _, id := range comp {
		buf = append(buf, m.Records[id].Name...)
		buf = append(buf, 0)
	}
	return farm.Fingerprint64(buf)
}

func rgbString(r, g, b uint32) string {
	buf := make([]byte, 0, len("255,255,255"))
	buf = strconv.AppendUint(buf, uint64(r), 10)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, uint64(g), 10)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, uint64(b), 10)
	return string(buf)
}
