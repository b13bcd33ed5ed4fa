package health

import "fmt"

// TimeoutStatus is the classification of a probe that hit its deadline.
const TimeoutStatus = StatusOutage

const timeoutMessage = "Request timeout"

// outcome is everything the classifier needs to know about one probe.
type outcome struct {
	err           error
	timedOut      bool
	statusCode    int
	payloadStatus string
}

type classifyRule struct {
	name   string
	match  func(o outcome) bool
	status Status
}

// classifyRules is evaluated top to bottom; the first match wins.
var classifyRules = []classifyRule{
	{
		name:   "timeout",
		match:  func(o outcome) bool { return o.timedOut },
		status: TimeoutStatus,
	},
	{
		name:   "transport error",
		match:  func(o outcome) bool { return o.err != nil },
		status: StatusUnknown,
	},
	{
		name:   "payload unhealthy",
		match:  func(o outcome) bool { return o.payloadStatus == "unhealthy" && (is2xx(o) || is5xx(o)) },
		status: StatusOutage,
	},
	{
		name:   "payload degraded",
		match:  func(o outcome) bool { return o.payloadStatus == "degraded" && (is2xx(o) || is5xx(o)) },
		status: StatusDegraded,
	},
	{
		name:   "success",
		match:  is2xx,
		status: StatusOperational,
	},
	{
		name:   "server error",
		match:  is5xx,
		status: StatusOutage,
	},
	{
		name:   "client error",
		match:  func(o outcome) bool { return o.statusCode >= 400 && o.statusCode <= 499 },
		status: StatusDegraded,
	},
}

func is2xx(o outcome) bool {
	return o.statusCode >= 200 && o.statusCode <= 299
}

func is5xx(o outcome) bool {
	return o.statusCode >= 500
}

// classify maps a probe outcome to a status and an optional diagnostic.
func classify(o outcome) (Status, string) {
	for _, r := range classifyRules {
		if !r.match(o) {
			continue
		}
		return r.status, diagnostic(r, o)
	}
	return StatusUnknown, fmt.Sprintf("unexpected HTTP status %d", o.statusCode)
}

func diagnostic(r classifyRule, o outcome) string {
	switch {
	case o.timedOut:
		return timeoutMessage
	case o.err != nil:
		return o.err.Error()
	case r.status == StatusOperational:
		return ""
	case o.payloadStatus != "" && r.name != "server error" && r.name != "client error":
		return fmt.Sprintf("health payload reports %s (HTTP %d)", o.payloadStatus, o.statusCode)
	default:
		return fmt.Sprintf("HTTP %d", o.statusCode)
	}
}
