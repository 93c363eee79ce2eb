package gcode

import (
	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/coord"
)

// VM will track state and interpret gcode.
//
// Positions are tracked in the controller's logical coordinates; G92 rewrites
// them in place the same way Marlin does.
type VM struct {
	pos  coord.Point
	home coord.Point

	modal [256]float64

	feed float64
	tool int
}

// NewVM constructs a new VM with default state.
func NewVM() *VM {
	vm := &VM{}

	// using marlin defaults
	vm.modal[ModalGroupMotion] = 0
	vm.modal[ModalGroupDistanceMode] = 90
	vm.modal[ModalGroupUnits] = 21

	return vm
}

func (vm VM) Inches() bool         { return vm.modal[ModalGroupUnits] == 20 }
func (vm VM) RelativeMotion() bool { return vm.modal[ModalGroupDistanceMode] == 91 }

func (vm VM) Pos() coord.Point       { return vm.pos }
func (vm *VM) SetPos(p coord.Point)  { vm.pos = p }
func (vm *VM) SetHome(p coord.Point) { vm.home = p }
func (vm VM) Feed() float64          { return vm.feed }
func (vm VM) Tool() int              { return vm.tool }

// ErrUnsupported is returned for motion the VM cannot track.
var ErrUnsupported = errors.New("unsupported code")

func isSupported(g Word) bool {
	if g.ModalGroup() != ModalGroupMotion {
		return true
	}
	return g.Arg == 0 || g.Arg == 1
}

func applyBlock(p coord.Point, b Block, mul float64) coord.Point {
	for _, g := range b {
		if g.IsAxis() {
			p = p.With(g.Axis(), g.Arg*mul)
		}
	}

	return p
}

// Next returns the VM state after running b, leaving vm untouched.
func (vm VM) Next(b Block) (VM, error) {
	err := b.Validate()
	if err != nil {
		return vm, err
	}
	var home, setPos, other bool
	for _, g := range b {
		if !isSupported(g) {
			return vm, errors.Wrap(ErrUnsupported, g.String())
		}
		mg := g.ModalGroup()
		switch mg {
		case ModalGroupNone, ModalGroupNonModal:
		case ModalGroupToolChange:
			vm.tool = int(g.Arg)
		case ModalGroupFeedRate:
			vm.feed = g.Arg
		default:
			vm.modal[mg] = g.Arg
		}
		switch g {
		case Home:
			home = true
		case SetPosition:
			setPos = true
		default:
			if mg == ModalGroupNonModal || mg == ModalGroupStopping {
				other = true
			}
		}
	}

	args := b.Args()
	mul := 1.0
	if vm.Inches() {
		mul = 25.4
	}

	switch {
	case home:
		if len(args) == 0 {
			vm.pos = vm.home
			return vm, nil
		}
		for _, g := range args {
			if g.IsAxis() {
				vm.pos = vm.pos.With(g.Axis(), vm.home.Get(g.Axis()))
			}
		}
	case setPos:
		vm.pos = applyBlock(vm.pos, args, mul)
	case other, len(args) == 0:
	default:
		if vm.RelativeMotion() {
			vm.pos = vm.pos.Add(applyBlock(coord.Point{}, args, mul))
		} else {
			vm.pos = applyBlock(vm.pos, args, mul)
		}
	}

	return vm, nil
}

// Run applies b to the VM state.
func (vm *VM) Run(b Block) error {
	next, err := vm.Next(b)
	if err != nil {
		return err
	}
	*vm = next
	return nil
}
