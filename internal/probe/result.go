package probe

import (
	"fmt"

	"github.com/angeloszaimis/docprobe/internal/transport"
)

// Class is the taxonomy bucket of a probe outcome.
type Class string

const (
	ClassAvailable   Class = "available"
	ClassRunning     Class = "running"
	ClassServerError Class = "server_error"
	ClassRefused     Class = "refused"
	ClassTimeout     Class = "timeout"
	ClassNetwork     Class = "network"
	ClassSetup       Class = "setup"
)

const (
	MessageAvailable = "Backend is available"
	MessageRefused   = "Cannot connect to the backend server. Please ensure it is running."
	MessageTimeout   = "Connection to backend timed out. The server might be overloaded or unreachable."
)

// Result is the outcome of one availability check. Message is set when
// Success is true, Error otherwise.
type Result struct {
	Success bool   `json:"success" yaml:"success"`
	Status  int    `json:"status,omitempty" yaml:"status,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Class   Class  `json:"-" yaml:"-"`
}

// Text returns whichever of Message or Error is set.
func (r Result) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// Classify maps a transport outcome onto a Result.
func Classify(o transport.Outcome) Result {
	switch o.Kind {
	case transport.KindResponded:
		if o.Response == nil {
			break
		}
		return classifyResponse(o.Response)

	case transport.KindNoResponse:
		return classifyNoResponse(o.Failure)

	case transport.KindSetupFailed:
		msg := "unknown error"
		if o.Failure != nil {
			msg = o.Failure.Message
		}
		return Result{
			Error: fmt.Sprintf("Request setup error: %s", msg),
			Class: ClassSetup,
		}
	}

	return Result{
		Error: "Backend availability check failed",
		Class: ClassNetwork,
	}
}

func classifyResponse(res *transport.Response) Result {
	code := res.StatusCode

	switch {
	case code >= 500:
		return Result{
			Status: code,
			Error:  fmt.Sprintf("Backend error: %d - %s", code, res.StatusText),
			Class:  ClassServerError,
		}
	case code == 200:
		return Result{
			Success: true,
			Status:  code,
			Message: MessageAvailable,
			Class:   ClassAvailable,
		}
	default:
		return Result{
			Success: true,
			Status:  code,
			Message: fmt.Sprintf("Backend is running (status: %d)", code),
			Class:   ClassRunning,
		}
	}
}

func classifyNoResponse(f *transport.Failure) Result {
	code := ""
	if f != nil {
		code = f.Code
	}

	switch code {
	case transport.CodeConnRefused:
		return Result{Error: MessageRefused, Class: ClassRefused}
	case transport.CodeTimedOut, transport.CodeAborted:
		return Result{Error: MessageTimeout, Class: ClassTimeout}
	case "":
		return Result{Error: "Network error: No response from server", Class: ClassNetwork}
	default:
		return Result{Error: fmt.Sprintf("Network error: %s", code), Class: ClassNetwork}
	}
}
