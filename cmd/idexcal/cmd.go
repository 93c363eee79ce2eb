package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mastercactapus/idexcal/config"
	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/leveling"
	"github.com/mastercactapus/idexcal/machine"
	"github.com/mastercactapus/idexcal/machine/marlin"
	"github.com/mastercactapus/idexcal/offset"
	"github.com/mastercactapus/idexcal/report"
	"github.com/mastercactapus/idexcal/sim"
	"github.com/mastercactapus/idexcal/spjs"
)

var (
	logLevel   = "info"
	configPath = "idexcal.yaml"
	useSim     bool
	port       string
	spjsURL    string
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "idexcal",
		Short:         "idexcal measures the offset between the toolheads of an IDEX printer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&logLevel, "log-level", "l", logLevel, "log level (trace, debug, info, warn, error)")
	flags.StringVarP(&configPath, "config", "c", configPath, "path to the YAML config file")
	flags.BoolVar(&useSim, "sim", false, "use a simulated printer instead of a controller")
	flags.StringVar(&port, "port", "", "serial port, or port name on the SPJS server (overrides config)")
	flags.StringVar(&spjsURL, "spjs", "", "websocket URL of an SPJS server (overrides config)")

	cmd.AddCommand(
		newProbeCommand(),
		newRunCommand(),
		newServeCommand(),
		newConfigCommand(),
	)
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if port != "" {
		cfg.Controller.Port = port
	}
	if spjsURL != "" {
		cfg.Controller.SPJS = spjsURL
	}
	return cfg, cfg.Validate()
}

// simPrinter places the probe surfaces where the default layout expects
// them, with the right toolhead 0.25mm off in X and -0.1mm off in Y.
func simPrinter(cfg offset.Config) *sim.Printer {
	p := sim.NewPrinter(coord.Point{})
	x := cfg.X.Start.X - cfg.X.Clearance/2
	y := cfg.Y.Start.Y - cfg.Y.Clearance/2
	p.Surface(0, coord.X, x)
	p.Surface(1, coord.X, x+0.25)
	p.Surface(0, coord.Y, y)
	p.Surface(1, coord.Y, y-0.1)
	return p
}

// connect opens the controller described by cfg.
func connect(cfg config.Config) (*machine.Machine, func(), error) {
	var a machine.Adapter
	closer := func() {}
	switch {
	case useSim:
		logrus.Info("using simulated printer")
		a = simPrinter(cfg.Probe)
	case cfg.Controller.SPJS != "":
		sp := spjs.NewClient(cfg.Controller.SPJS)
		a = marlin.NewSPJSAdapter(sp, cfg.Controller.Port, cfg.Controller.Baud)
		closer = func() { sp.Close() }
	default:
		conn, err := marlin.OpenSerial(cfg.Controller.Port, cfg.Controller.Baud)
		if err != nil {
			return nil, nil, err
		}
		a = conn
		closer = func() { conn.Close() }
	}

	dual := cfg.Controller.DualMode
	opt := machine.Options{
		Granularity: cfg.Leveling.Granularity,
		DualMode:    &dual,
	}
	if len(cfg.Leveling.Mesh) >= 3 {
		mesh, err := leveling.NewMesh(cfg.Leveling.Mesh)
		if err != nil {
			closer()
			return nil, nil, errors.Wrap(err, "leveling mesh")
		}
		opt.Mesh = mesh
	}
	return machine.NewMachine(a, opt), closer, nil
}

func multiReporter(reps ...offset.Reporter) offset.Reporter {
	var m report.Multi
	for _, r := range reps {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

// reporter builds the text reporter for w plus MQTT when a broker is set.
func reporter(cfg config.Config, w io.Writer) (offset.Reporter, error) {
	var c *color.Color
	if cfg.Report.Color {
		c = color.New(color.FgGreen, color.Bold)
	}
	txt, err := report.NewText(w, cfg.Report.Template, c)
	if err != nil {
		return nil, err
	}
	if cfg.MQTT.Broker == "" {
		return txt, nil
	}
	mq, err := report.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.Topic)
	if err != nil {
		return nil, err
	}
	return multiReporter(txt, mq), nil
}

func newProbeCommand() *cobra.Command {
	var opt offset.Options
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure the toolhead offset along X or Y (G429)",
		Long: `Measure the toolhead offset along X or Y.

Each toolhead is driven against the probe surface and the result printed is
left minus right. Exactly one of -x or -y must be given.

All axes are homed first unless --home-before=false is given. Skipping it is
only safe when the controller is known to be homed: the homed state is
tracked by this process and a fresh connection always starts unhomed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rep, err := reporter(cfg, color.Output)
			if err != nil {
				return err
			}
			m, closer, err := connect(cfg)
			if err != nil {
				return err
			}
			defer closer()

			h := &offset.Handler{
				Calibrator: offset.NewCalibrator(m, cfg.Probe),
				Reporter:   rep,
				Out:        os.Stderr,
			}
			_, err = h.Run(opt)
			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opt.X, "x", "x", false, "measure along X")
	flags.BoolVarP(&opt.Y, "y", "y", false, "measure along Y")
	flags.IntVarP(&opt.Count, "count", "p", 1, "samples per toolhead")
	flags.BoolVarP(&opt.HomeBefore, "home-before", "n", true, "home all axes first")
	flags.BoolVar(&opt.HomeAfter, "home-after", false, "re-home after the left toolhead")
	flags.BoolVar(&opt.NoRetract, "no-retract", false, "skip the retraction after the first sample")
	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.gcode>",
		Short: "Stream a G-code file, running G429 lines on the host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open program")
			}
			defer f.Close()

			rep, err := reporter(cfg, color.Output)
			if err != nil {
				return err
			}
			m, closer, err := connect(cfg)
			if err != nil {
				return err
			}
			defer closer()

			m.Register(gcode.OffsetProbe, (&offset.Handler{
				Calibrator: offset.NewCalibrator(m, cfg.Probe),
				Reporter:   rep,
				Out:        os.Stderr,
			}).Handle)
			return m.Run(gcode.NewParser(f))
		},
	}
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Listen
			}
			rep, err := reporter(cfg, color.Output)
			if err != nil {
				return err
			}
			m, closer, err := connect(cfg)
			if err != nil {
				return err
			}
			defer closer()

			a := newAPI(m, offset.NewCalibrator(m, cfg.Probe), rep)
			defer a.Close()

			logrus.WithField("addr", addr).Info("listening")
			return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "*")
				logrus.WithFields(logrus.Fields{
					"method": req.Method,
					"path":   req.URL.Path,
					"remote": req.RemoteAddr,
				}).Debug("request")
				a.ServeHTTP(w, req)
			}))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
