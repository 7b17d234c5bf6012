package dsquery

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonbodner/dsquery/logger"
	"github.com/sirupsen/logrus"
)

// RegisterLineLogger routes package logging into a buffer for the duration of the test and
// returns a function that drains the buffer as lines.
func RegisterLineLogger(t *testing.T) func() []string {
	t.Cleanup(func() {
		logger.Config(logger.Logrus(logrus.StandardLogger()))
	})
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	logger.Config(logger.Logrus(l))
	return func() []string {
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		buf.Reset()
		return lines
	}
}
