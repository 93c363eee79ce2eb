package offset

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
)

// Prober takes single and repeated measurements.
type Prober struct {
	Probe  Probe
	Config Config
}

// Measure drives the active toolhead against the endstop along a and returns
// the trigger position. With retract set the head is then moved clear along
// the Retraction path.
//
// The printer must already be homed. An armed move that ends without a
// trigger fails at ClearHit.
func (p *Prober) Measure(a coord.Axis, retract bool) (float64, error) {
	g, err := p.Config.Geometry(a)
	if err != nil {
		return 0, err
	}
	log := logrus.WithField("axis", a)

	if err = p.Probe.MoveTo(g.Start, g.Feeds.Travel); err != nil {
		return 0, errors.Wrap(err, "move to start")
	}
	if err = p.Probe.MoveToAxis(coord.Z, g.ProbeZ(), g.Feeds.Fast); err != nil {
		return 0, errors.Wrap(err, "lower to probe height")
	}
	if err = p.Probe.Arm(a); err != nil {
		return 0, errors.Wrap(err, "arm endstop")
	}
	if err = p.Probe.MoveToAxis(a, g.Target(a), g.Feeds.Slow); err != nil {
		return 0, errors.Wrap(err, "probe")
	}
	if err = p.Probe.ClearHit(); err != nil {
		return 0, errors.Wrap(err, "clear endstop hit")
	}
	pos, err := p.Probe.SyncFromSteppers()
	if err != nil {
		return 0, errors.Wrap(err, "read stepper position")
	}
	if err = p.Probe.SyncPlanner(pos); err != nil {
		return 0, errors.Wrap(err, "sync planner")
	}
	if err = p.Probe.Disarm(a); err != nil {
		return 0, errors.Wrap(err, "disarm endstop")
	}

	measured := pos.Get(a)
	log.WithField("position", measured).Debug("probe triggered")

	if !retract {
		return measured, nil
	}

	path := Retraction(a, measured, g)
	for i, wp := range path.Waypoints {
		if err = p.Probe.MoveTo(wp, g.Feeds.Fast); err != nil {
			return 0, errors.Wrapf(err, "retract waypoint %d", i+1)
		}
	}
	if err = p.Probe.MoveToAxis(coord.Z, path.Z, g.Feeds.Fast); err != nil {
		return 0, errors.Wrap(err, "retract to start height")
	}

	return measured, nil
}

// Sample takes count measurements along a and combines them. The first
// measurement retracts only if retractFirst is set; every later one retracts.
func (p *Prober) Sample(a coord.Axis, count int, retractFirst bool) (float64, []float64, error) {
	if count < 1 {
		count = 1
	}
	samples := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		v, err := p.Measure(a, i > 0 || retractFirst)
		if err != nil {
			return 0, samples, errors.Wrapf(err, "sample %d/%d", i+1, count)
		}
		samples = append(samples, v)
	}

	return Combine(samples), samples, nil
}

// Combine reduces repeated samples to one value.
//
// A pair is blended 3:2 in favor of the first sample; three or more are
// averaged.
func Combine(samples []float64) float64 {
	switch len(samples) {
	case 0:
		return 0
	case 1:
		return samples[0]
	case 2:
		return (samples[1]*2 + samples[0]*3) / 5
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
