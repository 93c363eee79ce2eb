package report

import (
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/offset"
)

// Multi reports to every reporter in order. All are tried; the first error is
// returned.
type Multi []offset.Reporter

func (m Multi) Report(r offset.Result) error {
	var first error
	for _, rep := range m {
		err := rep.Report(r)
		if err == nil {
			continue
		}
		logrus.WithError(err).WithField("run", r.RunID).Error("report result")
		if first == nil {
			first = err
		}
	}
	return first
}

// Func adapts a function to offset.Reporter.
type Func func(offset.Result) error

func (f Func) Report(r offset.Result) error { return f(r) }
