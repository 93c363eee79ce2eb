// Package report delivers calibration results to people and other systems.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/flosch/pongo2/v5"
	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/offset"
)

// DefaultTemplate renders the classic report line.
const DefaultTemplate = "measured {{ axis }}: {{ offset|floatformat:3 }}"

// Text writes one rendered line per result.
type Text struct {
	w     io.Writer
	tpl   *pongo2.Template
	color *color.Color

	mx sync.Mutex
}

// NewText compiles tpl, or DefaultTemplate when tpl is empty. c may be nil.
//
// Templates see axis, offset, left, right, count, run, and the left_samples
// and right_samples lists.
func NewText(w io.Writer, tpl string, c *color.Color) (*Text, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	t, err := pongo2.FromString(tpl)
	if err != nil {
		return nil, errors.Wrap(err, "parse report template")
	}
	return &Text{w: w, tpl: t, color: c}, nil
}

func context(r offset.Result) pongo2.Context {
	return pongo2.Context{
		"axis":          r.Axis.String(),
		"offset":        r.Offset,
		"left":          r.Left,
		"right":         r.Right,
		"count":         r.Count,
		"run":           r.RunID,
		"left_samples":  r.LeftSamples,
		"right_samples": r.RightSamples,
	}
}

// Render returns the report line for r.
func (t *Text) Render(r offset.Result) (string, error) {
	s, err := t.tpl.Execute(context(r))
	if err != nil {
		return "", errors.Wrap(err, "render report")
	}
	return s, nil
}

func (t *Text) Report(r offset.Result) error {
	s, err := t.Render(r)
	if err != nil {
		return err
	}

	t.mx.Lock()
	defer t.mx.Unlock()
	if t.color != nil {
		_, err = t.color.Fprintln(t.w, s)
	} else {
		_, err = fmt.Fprintln(t.w, s)
	}
	return errors.Wrap(err, "write report")
}
