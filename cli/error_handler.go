package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/fleetview/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message tailored to the error code and returns err
// unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	fe, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeSessionMissing:
		fmt.Fprintf(out, "❌ Not logged in. Run 'fleetview login' first.\n")

	case errors.ErrCodeAuthFailed:
		fmt.Fprintf(out, "❌ Authentication failed: %s\n", fe.Message)
		if status, ok := fe.Details["status"]; ok && status == 401 {
			fmt.Fprintf(out, "Your session may have expired. Run 'fleetview login' again.\n")
		}

	case errors.ErrCodeBackend:
		fmt.Fprintf(out, "❌ Backend returned %v for %v: %s\n", fe.Details["status"], fe.Details["endpoint"], fe.Message)

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "❌ Configuration file not found: %v\n", fe.Details["path"])

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(out, "❌ Invalid configuration: %s\n", fe.Message)
		fmt.Fprintf(out, "Check it with 'fleetview config validate'.\n")

	case errors.ErrCodeChannel:
		fmt.Fprintf(out, "❌ Live channel unavailable at %v\n", fe.Details["endpoint"])

	case errors.ErrCodeMalformedSnapshot:
		fmt.Fprintf(out, "❌ The backend sent a malformed snapshot: %s\n", fe.Message)

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(out, "❌ %s\n", fe.Message)

	default:
		fmt.Fprintf(out, "❌ Error: %v\n", err)
	}

	if h.Verbose && fe != nil {
		fmt.Fprintf(out, "\nError details:\n%s\n", fe.ToJSON())
	}
	return err
}
