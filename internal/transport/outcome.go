package transport

import (
	"net/http"
	"time"
)

// Kind tags which branch of an Outcome is populated.
type Kind int

const (
	KindResponded   Kind = iota // any HTTP status was received
	KindNoResponse              // transport failed before a response arrived
	KindSetupFailed             // request was never sent
)

func (k Kind) String() string {
	switch k {
	case KindResponded:
		return "responded"
	case KindNoResponse:
		return "no_response"
	case KindSetupFailed:
		return "setup_failed"
	default:
		return "unknown"
	}
}

// Failure codes attached to NoResponse and SetupFailed outcomes.
const (
	CodeConnRefused = "ECONNREFUSED"
	CodeTimedOut    = "ETIMEDOUT"
	CodeAborted     = "ECONNABORTED"
	CodeNotFound    = "ENOTFOUND"
	CodeConnReset   = "ECONNRESET"
	CodeBadRequest  = "ERR_BAD_REQUEST"
)

// Response is what the remote sent back.
type Response struct {
	StatusCode  int
	StatusText  string
	Header      http.Header
	ContentType string
	Body        []byte
}

// Failure describes a request that produced no response.
type Failure struct {
	Code    string
	Message string
	URL     string
	Method  string
	Timeout time.Duration
}

// Outcome is the result of exactly one exchange. Response is set only for
// KindResponded, Failure only for the two failure kinds.
type Outcome struct {
	Kind     Kind
	Response *Response
	Failure  *Failure
	Duration time.Duration
}

// StatusCode returns the received status, or 0 when nothing was received.
func (o Outcome) StatusCode() int {
	if o.Response == nil {
		return 0
	}
	return o.Response.StatusCode
}

// Responded reports whether the remote answered with any status.
func (o Outcome) Responded() bool {
	return o.Kind == KindResponded && o.Response != nil
}
