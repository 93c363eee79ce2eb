package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/machine"
	"github.com/mastercactapus/idexcal/offset"
)

const offsetEvents = "/events/offset"

type api struct {
	http.Handler
	m   *machine.Machine
	cal *offset.Calibrator
	rep offset.Reporter
	sse *sse.Server

	// one program or calibration at a time
	mx sync.Mutex
}

// newAPI serves m over HTTP. Results of both /api/offset and G429 lines in
// /api/run go to rep and the SSE stream.
func newAPI(m *machine.Machine, cal *offset.Calibrator, rep offset.Reporter) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		m:       m,
		cal:     cal,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(logrus.StandardLogger().WriterLevel(logrus.DebugLevel), "sse: ", 0),
		}),
	}
	a.rep = multiReporter(rep, a)

	m.Register(gcode.OffsetProbe, (&offset.Handler{
		Calibrator: cal,
		Reporter:   a.rep,
		Out:        logrus.StandardLogger().WriterLevel(logrus.WarnLevel),
	}).Handle)

	r.HandleFunc("/api/offset", a.calibrate).Methods("POST")
	r.HandleFunc("/api/run", a.run).Methods("POST")
	r.HandleFunc("/api/state", a.state).Methods("GET")
	r.PathPrefix("/events/").Handler(a.sse)

	return a
}

// Report pushes r to SSE subscribers.
func (a *api) Report(r offset.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	a.sse.SendMessage(offsetEvents, sse.SimpleMessage(string(data)))
	return nil
}

func (a *api) Close() { a.sse.Shutdown() }

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

func formBool(req *http.Request, name string) bool {
	v, _ := strconv.ParseBool(req.FormValue(name))
	return v
}

func (a *api) calibrate(w http.ResponseWriter, req *http.Request) {
	opt := offset.Options{
		X:          formBool(req, "x"),
		Y:          formBool(req, "y"),
		HomeBefore: formBool(req, "homeBefore"),
		HomeAfter:  formBool(req, "homeAfter"),
		NoRetract:  formBool(req, "noRetract"),
		Count:      1,
	}
	switch req.FormValue("axis") {
	case "x", "X":
		opt.X = true
	case "y", "Y":
		opt.Y = true
	}
	if s := req.FormValue("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid count: "+s, http.StatusBadRequest)
			return
		}
		opt.Count = n
	}

	a.mx.Lock()
	res, err := a.cal.Run(opt)
	a.mx.Unlock()
	switch {
	case offset.IsUsage(err):
		http.Error(w, offset.UsageMessage, http.StatusBadRequest)
		return
	case errors.Cause(err) == offset.ErrNotHomed:
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		logrus.WithError(err).Error("offset calibration")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err = a.rep.Report(res); err != nil {
		logrus.WithError(err).Warn("report result")
	}
	writeJSON(w, res)
}

func (a *api) run(w http.ResponseWriter, req *http.Request) {
	a.mx.Lock()
	err := a.m.Run(gcode.NewParser(req.Body))
	a.mx.Unlock()
	if err != nil {
		logrus.WithError(err).Error("run program")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stateResponse struct {
	offset.State
	Homed bool        `json:"homed"`
	Pos   coord.Point `json:"pos"`
}

func (a *api) state(w http.ResponseWriter, req *http.Request) {
	a.mx.Lock()
	s, err := a.m.State()
	a.mx.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stateResponse{State: s, Homed: a.m.Homed(), Pos: a.m.Pos()})
}
