package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/config"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/converters"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/logger"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// app carries state shared by all subcommands: root flags, the loaded
// project config and the logger cleanup.
type app struct {
	configDir string
	debug     bool
	logFile   string

	cfg     *config.ProjectConfig
	cleanup func() error
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ted2ocds",
		Short:         "Convert eForms notices into OCDS releases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", ".", "directory holding ted2ocds.yml")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging (stderr unless --log-file is set)")
	pf.StringVar(&a.logFile, "log-file", "", "append JSON logs to this file")

	cmd.AddCommand(
		a.convertCmd(),
		a.convertersCmd(),
		a.runsCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	path := a.logFile
	if path == "" {
		path = cfg.LogFile
	}
	cleanup, err := logger.Setup(logger.Config{
		Path:   path,
		Debug:  a.debug || cfg.Debug,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cleanup = cleanup
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

// registry returns the converter terms for prefix, falling back to the
// configured OCID prefix.
func (a *app) registry(prefix string) []converters.Term {
	if prefix == "" {
		prefix = a.cfg.OCIDPrefix
	}
	return converters.Registry(converters.Options{OCIDPrefix: prefix})
}

// pipelineConfig builds the runtime config from the project config. A
// positive workers value overrides it.
func (a *app) pipelineConfig(workers int) orchestrator.Config {
	if workers <= 0 {
		workers = a.cfg.Workers
	}
	return orchestrator.Config{
		Workers:        workers,
		IdentifierKeys: a.cfg.IdentifierKeys,
		Disabled:       a.cfg.DisabledConverters,
		Logger:         logger.L(),
	}
}

// auditBackend resolves the audit store from the project config, with
// dbPath selecting a kuzu database when set.
func (a *app) auditBackend(dbPath string) (backend, path string) {
	if dbPath != "" {
		return audit.BackendKuzu, dbPath
	}
	switch a.cfg.AuditStore {
	case config.AuditKuzu:
		return audit.BackendKuzu, a.cfg.AuditPath
	default:
		return audit.BackendMemory, ""
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
