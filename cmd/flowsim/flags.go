package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// GlobalFlags holds the persistent flags shared by every command. Log flags
// override the corresponding configuration keys when set.
type GlobalFlags struct {
	OutputFormat string
	ConfigFile   string
	LogLevel     string
	LogFormat    string
}

// RegisterGlobalFlags registers persistent flags on the root command.
func RegisterGlobalFlags(cmd *cobra.Command, f *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&f.OutputFormat, "output", "o", "text", "Output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&f.ConfigFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&f.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&f.LogFormat, "log-format", "", "Log format (text|json)")
}

// Format validates and returns the output format.
func (f *GlobalFlags) Format() (OutputFormat, error) {
	switch OutputFormat(f.OutputFormat) {
	case FormatText, FormatJSON, FormatYAML:
		return OutputFormat(f.OutputFormat), nil
	}
	return "", WrapError(ExitUsage,
		fmt.Sprintf("invalid output format: %s (must be text, json, or yaml)", f.OutputFormat), nil)
}
