package offset

import (
	"fmt"
	"io"

	"github.com/mastercactapus/idexcal/gcode"
)

// Reporter receives finished results.
type Reporter interface {
	Report(Result) error
}

// OptionsFromBlock reads `G429 X|Y [P<count>] [N] [H]`.
//
// N homes first, H re-homes between toolheads and P is the sample count.
func OptionsFromBlock(b gcode.Block) Options {
	return Options{
		X:          b.Has('X'),
		Y:          b.Has('Y'),
		Count:      b.Int('P', 1),
		HomeBefore: b.Has('N'),
		HomeAfter:  b.Has('H'),
	}
}

// Handler runs G429 blocks and reports the outcome.
type Handler struct {
	Calibrator *Calibrator
	Reporter   Reporter

	// Out receives the usage message for invalid axis selections.
	Out io.Writer
}

// Handle runs b. Usage errors are written to Out and are not returned.
func (h *Handler) Handle(b gcode.Block) error {
	_, err := h.Run(OptionsFromBlock(b))
	return err
}

// Run is Handle for already parsed options.
func (h *Handler) Run(opt Options) (Result, error) {
	res, err := h.Calibrator.Run(opt)
	if IsUsage(err) {
		_, err = fmt.Fprintln(h.Out, UsageMessage)
		return Result{}, err
	}
	if err != nil {
		return Result{}, err
	}
	if h.Reporter == nil {
		return res, nil
	}
	return res, h.Reporter.Report(res)
}
