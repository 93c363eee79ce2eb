// Package spjs is a client for Serial Port JSON Server, a websocket bridge
// that owns the serial port of a remote controller.
package spjs

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("spjs client closed")

// Client keeps a websocket open to an SPJS server, reconnecting as needed.
type Client struct {
	url string

	mx          sync.RWMutex
	serialPorts []SerialPort

	outgoing chan message
	incoming chan interface{}
	closeCh  chan struct{}
	once     sync.Once

	// RetryDelay is the pause between reconnect attempts.
	RetryDelay time.Duration
}

type message struct {
	done    chan struct{}
	payload []byte
}

// DataFrame is a chunk of text read from a serial port.
type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}

// CmdStatus reports the progress of queued sendjson lines.
type CmdStatus struct {
	Cmd        string
	QueueCount int `json:"QCnt"`
	Type       []string
	Data       []string `json:"D"`
	ID         string   `json:"Id"`
	Port       string   `json:"P"`
}

type ErrorMessage struct {
	Error string
}

type SerialPortList struct {
	SerialPorts []SerialPort
}

type SerialPort struct {
	Name                      string
	Friendly                  string
	SerialNumber              string
	DeviceClass               string
	IsOpen                    bool
	IsPrimary                 bool
	RelatedNames              []string
	Baud                      int
	BufferAlgorithm           string
	AvailableBufferAlgorithms []string
	Ver                       float64
	USBVID                    string
	USBPID                    string
	FeedRateOverride          float64
}

// JSON is the payload of a sendjson command.
type JSON struct {
	Port string `json:"P"`
	Data []Data
}

type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

// NewClient starts connecting to url in the background.
func NewClient(url string) *Client {
	c := &Client{
		url:        url,
		outgoing:   make(chan message, 1000),
		incoming:   make(chan interface{}, 1000),
		closeCh:    make(chan struct{}),
		RetryDelay: 3 * time.Second,
	}
	go c.loop()
	return c
}

// Messages delivers every decoded server message.
func (c *Client) Messages() <-chan interface{} { return c.incoming }

// SerialPorts returns the last port list seen from the server.
func (c *Client) SerialPorts() []SerialPort {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return append([]SerialPort(nil), c.serialPorts...)
}

// Close stops the reconnect loop.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.closeCh) })
	return nil
}

func parseMessage(data []byte) (interface{}, error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "decode message")
	}
	var val interface{}
	switch {
	case msg["Error"] != nil:
		val = &ErrorMessage{}
	case msg["SerialPorts"] != nil:
		val = &SerialPortList{}
	case msg["Cmd"] != nil:
		val = &CmdStatus{}
	case msg["D"] != nil:
		val = &DataFrame{}
	default:
		return nil, errors.Errorf("unknown message: %s", data)
	}
	if err := json.Unmarshal(data, val); err != nil {
		return nil, errors.Wrapf(err, "decode %T", val)
	}
	return val, nil
}

func (c *Client) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			logrus.WithError(err).Error("spjs read")
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// command echo
			continue
		}
		val, err := parseMessage(data)
		if err != nil {
			logrus.WithError(err).Warn("spjs parse")
			continue
		}
		if list, ok := val.(*SerialPortList); ok {
			c.mx.Lock()
			c.serialPorts = list.SerialPorts
			c.mx.Unlock()
		}
		select {
		case c.incoming <- val:
		case <-c.closeCh:
			return
		}
	}
}

func (c *Client) loop() {
	var nextUp message
	log := logrus.WithField("url", c.url)

reconnect:
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		log.Info("connecting to spjs")
		ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			log.WithError(err).Error("spjs connect")
			select {
			case <-time.After(c.RetryDelay):
			case <-c.closeCh:
				return
			}
			continue
		}
		log.Info("connected to spjs")
		done := make(chan struct{})
		go c.readLoop(ws, done)
		go c.WriteString("list") // refresh port state on every connect

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					log.WithError(err).Error("spjs send")
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-done:
				ws.Close()
				continue reconnect
			case <-c.closeCh:
				ws.Close()
				return
			case nextUp = <-c.outgoing:
			}
		}
	}
}

func (c *Client) write(payload []byte) error {
	ch := make(chan struct{})
	select {
	case c.outgoing <- message{done: ch, payload: payload}:
	case <-c.closeCh:
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-c.closeCh:
		return ErrClosed
	}
}

// SendJSON queues lines for a port. It returns once the request is written
// to the websocket.
func (c *Client) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal sendjson")
	}
	return c.write(append([]byte("sendjson "), data...))
}

// WriteString sends a raw SPJS command like `list` or `open`.
func (c *Client) WriteString(data string) error {
	return c.write([]byte(data))
}
