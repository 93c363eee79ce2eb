package marlin

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// OpenSerial opens a controller attached to a local serial port.
func OpenSerial(name string, baud int) (*Conn, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: name,
		Baud: baud,
		// Marlin is silent during long moves; reads must block.
		ReadTimeout: time.Duration(0),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port '%s'", name)
	}
	return NewConn(port), nil
}
