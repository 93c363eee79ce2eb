package leveling

import (
	"math"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
)

// Leveler wraps a gcode.Reader and splits XY moves into segments no longer
// than Granularity, raising each segment end by the mesh height below it.
type Leveler struct {
	src         gcode.Reader
	offsetter   ZOffsetter
	granularity float64

	vm      gcode.VM
	pending []gcode.Block
}

var _ gcode.Reader = &Leveler{}

// NewLeveler starts leveling from the state of vm, whose position is uncompensated.
func NewLeveler(src gcode.Reader, o ZOffsetter, granularity float64, vm gcode.VM) *Leveler {
	return &Leveler{
		src:         src,
		offsetter:   o,
		granularity: granularity,
		vm:          vm,
	}
}

// Pos is the uncompensated position after the last block read.
func (l *Leveler) Pos() coord.Point { return l.vm.Pos() }

// VM returns the interpreter state after the last block read.
func (l *Leveler) VM() gcode.VM { return l.vm }

func (l *Leveler) offset(p coord.Point) float64 {
	ok, z := l.offsetter.OffsetZ(p.X, p.Y)
	if !ok {
		return 0
	}
	return z
}

func (l *Leveler) Read() (gcode.Block, error) {
	if len(l.pending) > 0 {
		b := l.pending[0]
		l.pending = l.pending[1:]
		return b, nil
	}

	b, err := l.src.Read()
	if err != nil {
		return nil, err
	}

	from := l.vm.Pos()
	next, err := l.vm.Next(b)
	if err != nil {
		return nil, err
	}
	l.vm = next
	to := l.vm.Pos()

	if from.Equal(to) || b.Is(gcode.Home) || b.Is(gcode.SetPosition) {
		return b, nil
	}

	n := 1
	if l.granularity > 0 {
		n = int(math.Max(1, math.Ceil(from.DistanceXY(to.X, to.Y)/l.granularity)))
	}

	div := 1.0
	if l.vm.Inches() {
		div = 25.4
	}

	var base gcode.Block
	for _, w := range b {
		if !w.IsAxis() {
			base = append(base, w)
		}
	}

	prev := from
	for i := 1; i <= n; i++ {
		end := from.Lerp(to, float64(i)/float64(n))
		seg := end
		seg.Z += l.offset(end)
		if l.vm.RelativeMotion() {
			seg = seg.Sub(prev)
			seg.Z -= l.offset(prev)
		}
		seg = seg.Div(div)

		bl := base.Clone()
		bl = append(bl,
			gcode.Word{W: 'X', Arg: seg.X},
			gcode.Word{W: 'Y', Arg: seg.Y},
			gcode.Word{W: 'Z', Arg: seg.Z},
		)
		l.pending = append(l.pending, bl)
		prev = end
	}

	b = l.pending[0]
	l.pending = l.pending[1:]
	return b, nil
}
