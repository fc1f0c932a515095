package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess = 0
	// ExitFailure reports an invalid workflow or a failed run.
	ExitFailure = 1
	// ExitUsage reports bad arguments, unreadable input or bad configuration.
	ExitUsage = 2
)

// CLIError carries the exit code a command wants.
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a CLIError around err, which may be nil.
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Cause: err}
}

// HandleError prints err and maps it to an exit code. Errors that are not
// CLIErrors come from cobra itself (unknown flags, wrong argument counts).
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitFailure
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Error())
		return cliErr.Code
	}

	cmd.PrintErrln("Error:", err)
	return ExitUsage
}
