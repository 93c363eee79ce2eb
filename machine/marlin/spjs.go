package marlin

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/machine"
	"github.com/mastercactapus/idexcal/spjs"
)

// ErrWiped is returned for lines dropped from the SPJS queue.
var ErrWiped = errors.New("spjs queue wiped")

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

// Bridge is the part of an SPJS client used by SPJSAdapter.
type Bridge interface {
	Messages() <-chan interface{}
	SendJSON(spjs.JSON) error
	WriteString(string) error
}

// SPJSAdapter drives a Marlin controller attached to an SPJS server.
type SPJSAdapter struct {
	sp   Bridge
	port string
	baud int

	cmds    chan adapterMessage
	waiting map[string]*pending
	order   []string
	partial string

	mx   sync.Mutex
	hits []machine.Hit
}

var _ machine.Adapter = &SPJSAdapter{}

type adapterMessage struct {
	spjs.JSON
	id   string
	wait *pending
}

// NewSPJSAdapter uses port on the bridge, opening it at baud if needed.
func NewSPJSAdapter(sp Bridge, port string, baud int) *SPJSAdapter {
	a := &SPJSAdapter{
		sp:      sp,
		port:    port,
		baud:    baud,
		cmds:    make(chan adapterMessage),
		waiting: make(map[string]*pending, 8),
	}
	go a.loop()
	return a
}

func (a *SPJSAdapter) loop() {
	for {
		select {
		case msg, ok := <-a.sp.Messages():
			if !ok {
				a.failAll(ErrClosed)
				return
			}
			a.handleMessage(msg)
		case msg := <-a.cmds:
			if err := a.sp.SendJSON(msg.JSON); err != nil {
				msg.wait.done <- errors.Wrap(err, "sendjson")
				continue
			}
			a.waiting[msg.id] = msg.wait
			a.order = append(a.order, msg.id)
		}
	}
}

func (a *SPJSAdapter) handleMessage(msg interface{}) {
	switch msg := msg.(type) {
	case *spjs.DataFrame:
		if msg.Port != a.port {
			return
		}
		a.partial += msg.Data
		for {
			i := strings.IndexByte(a.partial, '\n')
			if i < 0 {
				break
			}
			a.handleLine(strings.TrimSpace(a.partial[:i]))
			a.partial = a.partial[i+1:]
		}
	case *spjs.CmdStatus:
		switch msg.Cmd {
		case "WipedQueue":
			a.failAll(ErrWiped)
		case "Complete":
			a.complete(msg.ID, nil)
		}
	case *spjs.SerialPortList:
		for _, port := range msg.SerialPorts {
			if port.Name != a.port || port.IsOpen {
				continue
			}
			logrus.WithField("port", a.port).Info("opening port on spjs")
			err := a.sp.WriteString("open " + a.port + " " + strconv.Itoa(a.baud) + " marlin")
			if err != nil {
				logrus.WithError(err).Error("spjs open")
			}
		}
	case *spjs.ErrorMessage:
		logrus.WithField("port", a.port).Error("spjs: " + msg.Error)
	}
}

// current is the oldest line still waiting for completion.
func (a *SPJSAdapter) current() *pending {
	if len(a.order) == 0 {
		return nil
	}
	return a.waiting[a.order[0]]
}

func (a *SPJSAdapter) handleLine(line string) {
	if line == "" {
		return
	}
	logrus.WithField("line", line).Debug("recv")
	p := a.current()
	switch classify(line) {
	case lineOK, lineBusy:
	case lineReset:
		a.failAll(ErrReset)
	case lineError:
		if p != nil && p.err == nil {
			p.err = errors.New(strings.TrimPrefix(line, "Error:"))
		}
	case lineHit:
		a.mx.Lock()
		a.hits = append(a.hits, parseHits(line)...)
		a.mx.Unlock()
		fallthrough
	default:
		if p != nil {
			p.lines = append(p.lines, line)
		}
	}
}

func (a *SPJSAdapter) complete(id string, err error) {
	p := a.waiting[id]
	if p == nil {
		return
	}
	delete(a.waiting, id)
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	if err == nil {
		err = p.err
	}
	p.done <- err
}

func (a *SPJSAdapter) failAll(err error) {
	for _, id := range a.order {
		a.waiting[id].done <- err
		delete(a.waiting, id)
	}
	a.order = nil
}

// Send queues a line on the bridge and waits until SPJS reports it complete.
func (a *SPJSAdapter) Send(line string) ([]string, error) {
	p := newPending()
	id := nextID()
	a.cmds <- adapterMessage{
		JSON: spjs.JSON{
			Port: a.port,
			Data: []spjs.Data{{Data: strings.TrimSpace(line) + "\n", ID: id}},
		},
		id:   id,
		wait: p,
	}
	err := <-p.done
	return p.lines, err
}

func (a *SPJSAdapter) Hits() []machine.Hit {
	a.mx.Lock()
	defer a.mx.Unlock()
	return append([]machine.Hit(nil), a.hits...)
}

func (a *SPJSAdapter) ResetHits() {
	a.mx.Lock()
	a.hits = nil
	a.mx.Unlock()
}
