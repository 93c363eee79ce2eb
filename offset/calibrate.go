package offset

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
)

// Options select what a calibration run does.
type Options struct {
	X, Y bool

	// Count is the number of samples per toolhead. Values below 1 mean 1.
	Count int

	// HomeBefore forces homing before anything else.
	HomeBefore bool

	// HomeAfter re-homes after the left toolhead is measured.
	HomeAfter bool

	// NoRetract skips the retraction path after the first sample of each toolhead.
	NoRetract bool
}

// Axis returns the single requested axis.
func (o Options) Axis() (coord.Axis, error) {
	switch {
	case o.X && o.Y:
		return 0, ErrBothAxes
	case o.X:
		return coord.X, nil
	case o.Y:
		return coord.Y, nil
	}
	return 0, ErrNoAxis
}

func (o Options) count() int {
	if o.Count < 1 {
		return 1
	}
	return o.Count
}

// Calibrator runs full two-toolhead calibrations on one printer.
type Calibrator struct {
	printer Printer
	prober  *Prober
	cfg     Config

	mx sync.Mutex
}

// NewCalibrator prepares calibrations of p using the layout in cfg.
func NewCalibrator(p Printer, cfg Config) *Calibrator {
	return &Calibrator{
		printer: p,
		prober:  &Prober{Probe: p, Config: cfg},
		cfg:     cfg,
	}
}

// Run measures both toolheads along the requested axis and returns
// left - right. Usage errors are returned before the printer is touched.
//
// The duplication, leveling and active tool state is restored afterwards,
// including after a failed measurement.
func (c *Calibrator) Run(opt Options) (res Result, err error) {
	axis, err := opt.Axis()
	if err != nil {
		return Result{}, err
	}
	g, err := c.cfg.Geometry(axis)
	if err != nil {
		return Result{}, err
	}

	c.mx.Lock()
	defer c.mx.Unlock()

	res = Result{
		RunID: uuid.NewV4().String(),
		Axis:  axis,
		Count: opt.count(),
	}
	log := logrus.WithFields(logrus.Fields{
		"run":   res.RunID,
		"axis":  axis,
		"count": res.Count,
	})

	if opt.HomeBefore {
		log.Info("homing")
		if err = c.printer.Home(); err != nil {
			return Result{}, errors.Wrap(err, "home")
		}
	}
	if !c.printer.Homed() {
		return Result{}, ErrNotHomed
	}
	if err = c.printer.Drain(); err != nil {
		return Result{}, errors.Wrap(err, "drain")
	}

	saved, err := c.printer.State()
	if err != nil {
		return Result{}, errors.Wrap(err, "read printer state")
	}
	defer func() {
		rErr := c.restore(saved)
		if rErr == nil {
			return
		}
		if err != nil {
			log.WithError(rErr).Error("restore printer state")
			return
		}
		err = errors.Wrap(rErr, "restore printer state")
	}()

	if err = c.printer.SetDuplication(false); err != nil {
		return Result{}, errors.Wrap(err, "disable duplication")
	}
	if err = c.printer.SetLeveling(false); err != nil {
		return Result{}, errors.Wrap(err, "disable leveling")
	}
	// the saved tool is only what the host last sent; always select
	if err = c.printer.SelectTool(0); err != nil {
		return Result{}, errors.Wrap(err, "select tool 0")
	}

	log.Info("measuring left toolhead")
	res.Left, res.LeftSamples, err = c.prober.Sample(axis, res.Count, !opt.NoRetract)
	if err != nil {
		return Result{}, errors.Wrap(err, "left toolhead")
	}

	if opt.HomeAfter {
		log.Info("re-homing")
		if err = c.printer.Home(); err != nil {
			return Result{}, errors.Wrap(err, "re-home")
		}
	}
	if err = c.printer.MoveTo(c.cfg.Handoff, g.Feeds.Travel); err != nil {
		return Result{}, errors.Wrap(err, "move to handoff")
	}
	if err = c.printer.SelectTool(1); err != nil {
		return Result{}, errors.Wrap(err, "select tool 1")
	}

	log.Info("measuring right toolhead")
	res.Right, res.RightSamples, err = c.prober.Sample(axis, res.Count, !opt.NoRetract)
	if err != nil {
		return Result{}, errors.Wrap(err, "right toolhead")
	}

	res.Offset = res.Left - res.Right
	res.Time = time.Now()
	log.WithFields(logrus.Fields{
		"left":   res.Left,
		"right":  res.Right,
		"offset": res.Offset,
	}).Info("calibration complete")

	return res, nil
}

func (c *Calibrator) restore(s State) error {
	if err := c.printer.SelectTool(s.Tool); err != nil {
		return errors.Wrapf(err, "select tool %d", s.Tool)
	}
	if err := c.printer.SetDuplication(s.Duplication); err != nil {
		return errors.Wrap(err, "duplication")
	}
	if err := c.printer.SetLeveling(s.Leveling); err != nil {
		return errors.Wrap(err, "leveling")
	}
	return nil
}
