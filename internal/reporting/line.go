package reporting

import (
	"fmt"
	"io"
	"os"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"mqguard/internal/registry"
)

// LineReporter is the synchronous reporter family: on each report, if it
// carries any alarm change or a presence update, it writes one line per
// change to the underlying writer. Presence is written first, then
// alarms, each in the device's stable registration order. Report runs
// inline on the caller's goroutine — normally the registry's own event
// loop — so it must stay cheap; a single mutex is enough since writes are
// small and line-buffered.
type LineReporter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewLineReporter wraps any io.Writer as a line reporter.
func NewLineReporter(out io.Writer) *LineReporter {
	return &LineReporter{out: out}
}

// NewPrintReporter writes lines to stdout.
func NewPrintReporter() *LineReporter {
	return NewLineReporter(os.Stdout)
}

// NewLogReporter writes lines to a rotating log file at path.
func NewLogReporter(path string) *LineReporter {
	return NewLineReporter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     28,
	})
}

func (r *LineReporter) Report(report *registry.DeviceReport) {
	if !report.HasAlarmChanges() && !report.HasPresenceUpdate() {
		return
	}

	if report.HasPresenceUpdate() {
		pt := report.PresenceTrack()
		broker := report.Presence.Identifier().Broker
		topic := report.Presence.Identifier().Topic
		r.writeLine(broker, topic, "Presence", pt.Active, pt.Message)
	}

	for _, e := range report.Changes() {
		r.writeLine(e.Identifier.Broker, e.Identifier.Topic, e.Alarm.Name(), e.Track.Active, e.Track.Message)
	}
}

func (r *LineReporter) writeLine(broker, topic, alarmName string, active bool, message *string) {
	text := "Is OK now"
	if active && message != nil {
		text = *message
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s %s %q\n", broker, topic, alarmName, text)
}

func (r *LineReporter) Stop() {
	if c, ok := r.out.(io.Closer); ok {
		c.Close()
	}
}

func (r *LineReporter) InjectDeviceRegistry(*registry.DeviceRegistry) {}
