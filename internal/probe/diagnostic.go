package probe

import (
	"github.com/angeloszaimis/docprobe/internal/transport"
)

type DiagnosticStatus string

const (
	StatusPending   DiagnosticStatus = "pending"
	StatusCompleted DiagnosticStatus = "completed"
	StatusFailed    DiagnosticStatus = "failed"
)

// Details holds either the raw response fields or the transport failure
// fields, never both.
type Details struct {
	StatusCode int               `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	StatusText string            `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       any               `json:"body,omitempty" yaml:"body,omitempty"`

	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// Diagnostic is the detailed record shown on debug surfaces. Error and
// Details serialize as null when absent.
type Diagnostic struct {
	Status  DiagnosticStatus `json:"status" yaml:"status"`
	Error   *string          `json:"error" yaml:"error"`
	Details *Details         `json:"details" yaml:"details"`
}

func Pending() Diagnostic {
	return Diagnostic{Status: StatusPending}
}

// DiagnosticFrom converts an outcome into a Diagnostic. Any received status,
// including 5xx, completes the diagnostic.
func DiagnosticFrom(o transport.Outcome) Diagnostic {
	if o.Responded() {
		res := o.Response
		body, err := res.Decoded()
		if err != nil {
			body = string(res.Body)
		}

		return Diagnostic{
			Status: StatusCompleted,
			Details: &Details{
				StatusCode: res.StatusCode,
				StatusText: res.StatusText,
				Headers:    transport.FlattenHeader(res.Header),
				Body:       body,
			},
		}
	}

	f := o.Failure
	if f == nil {
		f = &transport.Failure{Message: "unknown error"}
	}
	msg := f.Message

	return Diagnostic{
		Status: StatusFailed,
		Error:  &msg,
		Details: &Details{
			Message:   f.Message,
			Code:      f.Code,
			URL:       f.URL,
			Method:    f.Method,
			TimeoutMs: f.Timeout.Milliseconds(),
		},
	}
}
