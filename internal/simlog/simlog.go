// Package simlog configures the run's structured logger. Grounded on
// armadaproject-armada's plain `log "github.com/sirupsen/logrus"` import
// alias and direct package-level Info/Warn/Error calls — this repo carries
// that ambient logging convention even though spec.md's Non-goals exclude
// a full observability/metrics-export layer.
package simlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Configure sets the process-wide logrus logger's level and formatter.
// Called once from cmd/aifabric-sim before a run starts.
func Configure(level string, jsonOutput bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if jsonOutput {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// WithSimTime returns a field logger carrying the simulated clock value,
// so a run's log lines can be correlated to the event they came from
// without needing wall-clock timestamps.
func WithSimTime(simTimeS float64) *logrus.Entry {
	return logrus.WithField("sim_time_s", simTimeS)
}
