// Package marlin talks to Marlin-dialect controllers, either over a serial
// line or through an SPJS bridge.
package marlin

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/machine"
)

var (
	// ErrReset is returned from Send if the controller restarts before the
	// line is acknowledged.
	ErrReset = errors.New("controller reset")

	// ErrClosed is returned from Send after the connection is closed.
	ErrClosed = errors.New("connection closed")
)

type pending struct {
	lines []string
	err   error
	done  chan error
}

func newPending() *pending { return &pending{done: make(chan error, 1)} }

// Conn represents a direct connection to a Marlin controller. Lines are sent
// one at a time, each waiting for its `ok`.
type Conn struct {
	rw io.ReadWriter

	wMx sync.Mutex

	mx      sync.Mutex
	pending *pending
	hits    []machine.Hit
	readErr error

	closeCh chan struct{}
	once    sync.Once
}

var _ machine.Adapter = &Conn{}

// NewConn creates a new Conn using the provided ReadWriter for data.
func NewConn(rw io.ReadWriter) *Conn {
	c := &Conn{
		rw:      rw,
		closeCh: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close will abort any in-progress Send and close the
// underlying ReadWriter, if it implements io.Closer.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closeCh)
		if closer, ok := c.rw.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}

func (c *Conn) readLoop() {
	scan := bufio.NewScanner(c.rw)
	for scan.Scan() {
		c.handle(strings.TrimSpace(scan.Text()))
	}
	err := scan.Err()
	if err == nil {
		err = io.EOF
	}

	select {
	case <-c.closeCh:
	default:
		logrus.WithError(err).Error("controller read")
	}

	c.mx.Lock()
	c.readErr = err
	c.finish(errors.Wrap(err, "read"))
	c.mx.Unlock()
	c.Close()
}

func (c *Conn) handle(line string) {
	if line == "" {
		return
	}
	logrus.WithField("line", line).Debug("recv")

	c.mx.Lock()
	defer c.mx.Unlock()
	switch classify(line) {
	case lineBusy:
	case lineOK:
		var err error
		if c.pending != nil {
			err = c.pending.err
		}
		c.finish(err)
	case lineReset:
		c.finish(ErrReset)
	case lineError:
		err := errors.New(strings.TrimPrefix(line, "Error:"))
		if strings.Contains(line, "halted") || strings.Contains(line, "kill()") {
			// no ok follows a halt
			c.finish(err)
			return
		}
		if c.pending != nil && c.pending.err == nil {
			c.pending.err = err
		}
	case lineHit:
		c.hits = append(c.hits, parseHits(line)...)
		fallthrough
	default:
		if c.pending != nil {
			c.pending.lines = append(c.pending.lines, line)
		}
	}
}

// finish must be called with mx held.
func (c *Conn) finish(err error) {
	if c.pending == nil {
		return
	}
	c.pending.done <- err
	c.pending = nil
}

// Send writes a single line and waits for the controller to acknowledge it.
func (c *Conn) Send(line string) ([]string, error) {
	c.wMx.Lock()
	defer c.wMx.Unlock()

	p := newPending()
	c.mx.Lock()
	if c.readErr != nil {
		c.mx.Unlock()
		return nil, ErrClosed
	}
	c.pending = p
	c.mx.Unlock()

	_, err := io.WriteString(c.rw, strings.TrimSpace(line)+"\n")
	if err != nil {
		c.mx.Lock()
		if c.pending == p {
			c.pending = nil
		}
		c.mx.Unlock()
		return nil, errors.Wrap(err, "write")
	}

	select {
	case err = <-p.done:
		return p.lines, err
	case <-c.closeCh:
		return nil, ErrClosed
	}
}

// Hits returns endstop triggers reported since the last ResetHits.
func (c *Conn) Hits() []machine.Hit {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]machine.Hit(nil), c.hits...)
}

func (c *Conn) ResetHits() {
	c.mx.Lock()
	c.hits = nil
	c.mx.Unlock()
}
