package apiclient

import (
	"encoding/json"
	"fmt"

	"github.com/angeloszaimis/docprobe/internal/transport"
)

const (
	msgUploadNoResponse = "Network Error: No response received from the server. Please check if the backend is running."
	msgNoResponse       = "Network Error: No response received from the server"
	msgBreakerOpen      = "Network Error: Backend is unreachable, request skipped"
)

// failureMessage renders the user-facing message for an outcome that did not
// succeed. noResponse is the text used when nothing came back.
func failureMessage(out transport.Outcome, noResponse string) string {
	switch out.Kind {
	case transport.KindResponded:
		if out.Response == nil {
			return noResponse
		}
		return fmt.Sprintf("Server error: %d - %s", out.Response.StatusCode, detailOrStatus(out.Response))

	case transport.KindSetupFailed:
		msg := "unknown error"
		if out.Failure != nil {
			msg = out.Failure.Message
		}
		return fmt.Sprintf("Request setup error: %s", msg)

	default:
		return noResponse
	}
}

// detailOrStatus prefers the backend's "detail" field when it is a string.
func detailOrStatus(res *transport.Response) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(res.Body, &body); err == nil {
		if detail, ok := body.Detail.(string); ok && detail != "" {
			return detail
		}
	}
	return res.StatusText
}

func succeeded(out transport.Outcome) bool {
	code := out.StatusCode()
	return out.Responded() && code >= 200 && code < 300
}
