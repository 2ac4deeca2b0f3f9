package certs

import "fmt"

// Severity classifies a protocol event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is a notification raised while the ACME workflow progresses.
type Event struct {
	Severity Severity
	Name     string // protocol step, e.g. "register" or "order"
	Domain   string // affected domain, if any
	Status   string // order/authorization status, if any
	Message  string
}

// notify classifies an event: warnings and errors are appended to the
// session's notice list for the end-of-run report, everything else is
// logged as progress.
func (iss *Issuer) notify(ev Event) {
	switch ev.Severity {
	case SeverityWarning, SeverityError:
		iss.notices = append(iss.notices, fmt.Sprintf("%s: %s", ev.Severity, ev.Message))
	default:
		args := []any{"event", ev.Name}
		if ev.Domain != "" {
			args = append(args, "domain", ev.Domain)
		}
		if ev.Status != "" {
			args = append(args, "status", ev.Status)
		}
		iss.logger.Info(ev.Message, args...)
	}
}

// Notices returns the warnings and errors collected so far, in the order
// they were recorded.
func (iss *Issuer) Notices() []string {
	out := make([]string, len(iss.notices))
	copy(out, iss.notices)
	return out
}
