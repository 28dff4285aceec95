// Package logging provides the narrow logging seam the data plane depends
// on, so that components never import the standard log package directly.
package logging

import "log"

// Logger is the logging contract consumed throughout the data plane.
// TrafficDebugf/ProtocolDebugf split the spec's "silent drop, debug log"
// rows into the original's two ifdebug() categories
// (ifdebug(TRAFFIC)/ifdebug(PROTOCOL) in original_source/net_packet.c):
// TrafficDebugf covers per-packet volume logging (sends, receives,
// decrypt/MAC failures, MTU probes), ProtocolDebugf covers
// control-plane-adjacent events (unknown sources, key/connection
// requests with no control plane wired). Errorf is for the "drop, error
// log" rows; Warnf is for the replay/late-packet and lost-packet
// warnings. Warnf logs on every call: a burst of dropped frames produces
// one line per frame, with no rate limiting.
type Logger interface {
	TrafficDebugf(format string, v ...any)
	ProtocolDebugf(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// StdLogger backs Logger with the standard library's log package, the way
// the rest of this codebase does: no structured logging dependency, just
// log.Printf with a level prefix. trafficDebug/protocolDebug gate the two
// debug categories independently, mirroring config.Config's
// TrafficDebug/ProtocolDebug knobs (SPEC_FULL.md §9).
type StdLogger struct {
	trafficDebug  bool
	protocolDebug bool
}

// NewStdLogger returns a Logger that always logs Warnf/Errorf and logs
// TrafficDebugf/ProtocolDebugf only when the matching flag is set.
func NewStdLogger(trafficDebug, protocolDebug bool) Logger {
	return &StdLogger{trafficDebug: trafficDebug, protocolDebug: protocolDebug}
}

func (l *StdLogger) TrafficDebugf(format string, v ...any) {
	if !l.trafficDebug {
		return
	}
	log.Printf("DEBUG[traffic] "+format, v...)
}

func (l *StdLogger) ProtocolDebugf(format string, v ...any) {
	if !l.protocolDebug {
		return
	}
	log.Printf("DEBUG[protocol] "+format, v...)
}

func (l *StdLogger) Warnf(format string, v ...any) {
	log.Printf("WARN "+format, v...)
}

func (l *StdLogger) Errorf(format string, v ...any) {
	log.Printf("ERROR "+format, v...)
}

// NoopLogger discards everything; used by tests that don't want log noise.
type NoopLogger struct{}

func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (NoopLogger) TrafficDebugf(string, ...any)  {}
func (NoopLogger) ProtocolDebugf(string, ...any) {}
func (NoopLogger) Warnf(string, ...any)          {}
func (NoopLogger) Errorf(string, ...any)         {}
