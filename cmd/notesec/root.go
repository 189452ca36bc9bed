package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notesec/internal/config"
	"notesec/internal/format"
)

// outputFlags carries the persistent --json/--yaml selection.
type outputFlags struct {
	json bool
	yaml bool
}

func (o *outputFlags) structured() bool {
	return o != nil && (o.json || o.yaml)
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var out outputFlags
	var logLevel string

	cmd := &cobra.Command{
		Use:           "notesec",
		Short:         "Notesec stores encrypted conversations and attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return configureOutput(&out)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newChatCmd(cfg, &out),
		newNoteCmd(cfg, &out),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &out),
	)

	return cmd
}

func configureOutput(out *outputFlags) error {
	name := "json"
	if out.yaml {
		name = "yaml"
	}
	formatter, err := format.ForName(name)
	if err != nil {
		return err
	}
	outputFormatter = formatter
	return nil
}
