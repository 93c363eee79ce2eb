// Package config loads the calibration tool's YAML configuration.
package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/offset"
)

// Controller describes how to reach the printer.
type Controller struct {
	// Port is a serial device path, or the port name on the SPJS server.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// SPJS is the websocket URL of a Serial Port JSON Server. Empty means
	// Port is opened locally.
	SPJS string `yaml:"spjs"`

	// DualMode is the M605 mode restored when duplication is switched off:
	// 0 full control, 1 auto-park (the default), 3 mirrored.
	DualMode int `yaml:"dualMode"`
}

// Leveling configures host-side mesh compensation.
type Leveling struct {
	// Mesh points as X, Y and bed height. Fewer than 3 disables host-side
	// leveling and leaves it to the controller.
	Mesh        []coord.Point `yaml:"mesh,omitempty"`
	Granularity float64       `yaml:"granularity"`
}

type MQTT struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

type Report struct {
	Template string `yaml:"template"`
	Color    bool   `yaml:"color"`
}

type Config struct {
	Controller Controller    `yaml:"controller"`
	Probe      offset.Config `yaml:"probe"`
	Leveling   Leveling      `yaml:"leveling"`
	MQTT       MQTT          `yaml:"mqtt"`
	Report     Report        `yaml:"report"`

	// Listen is the API address used by `serve`.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Controller: Controller{
			Port:     "/dev/ttyUSB0",
			Baud:     250000,
			DualMode: 1,
		},
		Probe:    offset.DefaultConfig(),
		Leveling: Leveling{Granularity: 10},
		MQTT:     MQTT{Topic: "idexcal/offset"},
		Report:   Report{Color: true},
		Listen:   ":9091",
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		logrus.WithField("path", path).Warn("config file does not exist, using defaults")
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config '%s'", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Controller.Port == "" {
		return errors.New("controller.port is required")
	}
	if c.Controller.SPJS == "" && c.Controller.Baud <= 0 {
		return errors.New("controller.baud must be positive")
	}
	switch c.Controller.DualMode {
	case 0, 1, 3:
	default:
		return errors.Errorf("controller.dualMode must be 0, 1 or 3, got %d", c.Controller.DualMode)
	}
	if err := c.Probe.Validate(); err != nil {
		return errors.Wrap(err, "probe")
	}
	if c.Leveling.Granularity < 0 {
		return errors.New("leveling.granularity must not be negative")
	}
	return nil
}

// Marshal encodes c as YAML, e.g. to write out the defaults.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "marshal config")
}
