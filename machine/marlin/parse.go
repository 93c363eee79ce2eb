package marlin

import (
	"strconv"
	"strings"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/machine"
)

type lineKind int

const (
	lineData lineKind = iota
	lineOK
	lineError
	lineReset
	lineBusy
	lineHit
)

func classify(line string) lineKind {
	switch {
	case line == "ok" || strings.HasPrefix(line, "ok "):
		return lineOK
	case strings.HasPrefix(line, "Error:"):
		return lineError
	case line == "start":
		return lineReset
	case strings.HasPrefix(line, "echo:busy"):
		return lineBusy
	case strings.HasPrefix(line, "echo:endstops hit:"):
		return lineHit
	}
	return lineData
}

// parseHits reads `echo:endstops hit: X:10.30 Y:20.00`.
func parseHits(line string) []machine.Hit {
	line = strings.TrimPrefix(line, "echo:endstops hit:")
	var hits []machine.Hit
	for _, f := range strings.Fields(line) {
		kv := strings.SplitN(f, ":", 2)
		if len(kv) != 2 || len(kv[0]) != 1 {
			continue
		}
		a, err := coord.ParseAxis(kv[0])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			continue
		}
		hits = append(hits, machine.Hit{Axis: a, Pos: v})
	}
	return hits
}
