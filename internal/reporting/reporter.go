// Package reporting fans completed DeviceReports out to every configured
// sink: synchronous line reporters and session-based streaming reporters
// share the same Reporter contract so the registry never needs to know
// which kind it is talking to.
package reporting

import (
	"go.uber.org/zap"

	"mqguard/internal/registry"
)

// Reporter is the capability set every sink implements. Start is not part
// of it: line reporters run entirely inline inside Report and have no
// Start; streaming reporters add one (see Runnable) to launch their acceptor.
type Reporter interface {
	Report(report *registry.DeviceReport)
	Stop()
	InjectDeviceRegistry(reg *registry.DeviceRegistry)
}

// Runnable is implemented by reporters with a background entry point (an
// acceptor loop, typically). ReportingManager starts these in their own
// goroutine; reporters without one simply don't implement this interface.
type Runnable interface {
	Start()
}

// ReportingManager holds an ordered list of reporters and implements
// registry.Sink: every DeviceReport the registry emits is forwarded to
// every reporter in registration order. A panicking or misbehaving
// reporter is logged and skipped — it never takes down the pipeline or
// the other reporters.
type ReportingManager struct {
	logger    *zap.Logger
	reporters []Reporter
}

// NewReportingManager creates an empty manager.
func NewReportingManager(logger *zap.Logger) *ReportingManager {
	return &ReportingManager{logger: logger}
}

// AddReporter appends a reporter. Must be called before Start.
func (m *ReportingManager) AddReporter(r Reporter) {
	m.reporters = append(m.reporters, r)
}

// InjectDeviceRegistry hands every reporter a reference to the registry,
// for sinks (streaming reporters) that must query initial state when a
// new session is accepted.
func (m *ReportingManager) InjectDeviceRegistry(reg *registry.DeviceRegistry) {
	for _, r := range m.reporters {
		r.InjectDeviceRegistry(reg)
	}
}

// Start launches the background entry point of every Runnable reporter.
func (m *ReportingManager) Start() {
	for _, r := range m.reporters {
		if runnable, ok := r.(Runnable); ok {
			go runnable.Start()
		}
	}
}

// Stop signals every reporter to stop and waits for none of this call's
// own work — each reporter's Stop is responsible for its own shutdown.
func (m *ReportingManager) Stop() {
	for _, r := range m.reporters {
		r.Stop()
	}
}

// Report implements registry.Sink. Each reporter call is isolated: a
// panic in one reporter is recovered, logged, and does not prevent the
// remaining reporters from receiving the report.
func (m *ReportingManager) Report(report *registry.DeviceReport) {
	for _, r := range m.reporters {
		m.deliver(r, report)
	}
}

func (m *ReportingManager) deliver(r Reporter, report *registry.DeviceReport) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("reporter panicked, skipping for this report",
				zap.String("device", report.Device),
				zap.Any("panic", rec))
		}
	}()
	r.Report(report)
}
