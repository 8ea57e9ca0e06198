package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
)

func (a *app) runsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	c := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a kuzu audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openAudit(cmd, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tNOTICE\tTYPE\tSTARTED\tAPPLIED\tSKIPPED\tERRORED\tCONFLICTS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.NoticeID, r.NoticeType, r.StartedAt.UTC().Format(time.RFC3339),
					r.Applied, r.Skipped, r.Errored, r.Conflicts)
			}
			return tw.Flush()
		},
	}
	c.PersistentFlags().StringVar(&dbPath, "audit-db", "", "kuzu audit database (default: config auditPath)")
	c.Flags().IntVar(&limit, "limit", 20, "maximum number of runs, newest first")

	c.AddCommand(a.runConflictsCmd(&dbPath))
	return c
}

func (a *app) runConflictsCmd(dbPath *string) *cobra.Command {
	var (
		prefix string
		source string
	)

	c := &cobra.Command{
		Use:   "conflicts [run-id]",
		Short: "Show conflicts of one run, or across runs by path prefix or converter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openAudit(cmd, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			var found []audit.Conflict
			switch {
			case len(args) == 1:
				found, err = store.Conflicts(ctx, args[0])
			case source != "":
				found, err = store.ConflictsBySource(ctx, source)
			default:
				found, err = store.ConflictsByPath(ctx, prefix, 0)
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSEQ\tKIND\tPATH\tSOURCE\tPREVIOUS\tINCOMING")
			for _, cf := range found {
				if source != "" && cf.Source != source {
					continue
				}
				if !strings.HasPrefix(cf.Path, prefix) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					cf.RunID, cf.Seq, cf.Kind, cf.Path, cf.Source, cf.Previous, cf.Incoming)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&prefix, "path-prefix", "", "only conflicts under this release path, e.g. tender.lots")
	c.Flags().StringVar(&source, "source", "", "only conflicts raised by this converter")
	return c
}

// openAudit opens the kuzu database at dbPath or the configured one. Runs
// are only queryable from a persistent store.
func (a *app) openAudit(cmd *cobra.Command, dbPath string) (audit.Store, error) {
	backend, path := a.auditBackend(dbPath)
	if backend != audit.BackendKuzu || path == "" {
		return nil, errors.New("no audit database: pass --audit-db or set auditStore: kuzu in ted2ocds.yml")
	}
	return audit.Open(cmd.Context(), backend, path)
}
