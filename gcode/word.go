package gcode

import (
	"strconv"
	"strings"

	"github.com/mastercactapus/idexcal/coord"
)

type Word struct {
	W   byte
	Arg float64

	// Bare words carry no value, like the flags of `M114 R`.
	Bare bool
}

// Common command words.
var (
	Rapid           = Word{W: 'G', Arg: 0}
	Linear          = Word{W: 'G', Arg: 1}
	Home            = Word{W: 'G', Arg: 28}
	SetPosition     = Word{W: 'G', Arg: 92}
	Absolute        = Word{W: 'G', Arg: 90}
	Relative        = Word{W: 'G', Arg: 91}
	Inches          = Word{W: 'G', Arg: 20}
	Millimeters     = Word{W: 'G', Arg: 21}
	OffsetProbe     = Word{W: 'G', Arg: 429}
	ReportPosition  = Word{W: 'M', Arg: 114}
	EnableEndstops  = Word{W: 'M', Arg: 120}
	DisableEndstops = Word{W: 'M', Arg: 121}
	Finish          = Word{W: 'M', Arg: 400}
	BedLeveling     = Word{W: 'M', Arg: 420}
	DualMode        = Word{W: 'M', Arg: 605}
)

// Tool returns the tool select word for index n.
func Tool(n int) Word { return Word{W: 'T', Arg: float64(n)} }

func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z': // maybe someday 'A', 'B', 'C', 'U', 'V', 'W':
		return true
	}
	return false
}

// IsCommand is true for G, M and T words.
func (w Word) IsCommand() bool {
	switch w.W {
	case 'G', 'M', 'T':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

// Axis returns the machine axis for an axis word.
func (w Word) Axis() coord.Axis { return coord.Axis(w.W) }

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
	}
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func (w Word) String() string {
	if w.Bare {
		return string(w.W)
	}
	return string(w.W) + formatFloat(w.Arg, 3)
}
