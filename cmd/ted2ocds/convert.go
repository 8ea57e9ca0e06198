package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/audit"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/converters"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/export"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/logger"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// errNothingApplied is returned when no converter contributed to the
// release.
var errNothingApplied = errors.New("no converter applied a fragment")

type convertFlags struct {
	output      string
	diagnostics string
	query       string
	workers     int
	indent      bool
	verbose     bool
	auditDB     string
	ocidPrefix  string
	diagram     bool
}

func (a *app) convertCmd() *cobra.Command {
	var f convertFlags

	c := &cobra.Command{
		Use:   "convert <notice.xml>",
		Short: "Convert one eForms notice into an OCDS release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("indent") {
				f.indent = a.cfg.Indent
			}
			return a.convert(cmd, args[0], f)
		},
	}

	c.Flags().StringVarP(&f.output, "output", "o", "", "write the release to this file instead of stdout")
	c.Flags().StringVar(&f.diagnostics, "diagnostics", "", "write outcomes, conflicts and provenance to this JSON file")
	c.Flags().StringVarP(&f.query, "query", "q", "", "print only the release sub-tree at this gjson path")
	c.Flags().IntVarP(&f.workers, "workers", "w", 0, "concurrent converters (default: config or GOMAXPROCS)")
	c.Flags().BoolVar(&f.indent, "indent", false, "indent JSON output")
	c.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print per-converter progress to stderr")
	c.Flags().StringVar(&f.auditDB, "audit-db", "", "record the run in this kuzu database")
	c.Flags().StringVar(&f.ocidPrefix, "ocid-prefix", "", "OCID prefix (default: config or "+converters.DefaultOCIDPrefix+")")
	c.Flags().BoolVar(&f.diagram, "diagram", false, "print a Mermaid diagram of lots, groups and bids instead of JSON")
	return c
}

func (a *app) convert(cmd *cobra.Command, path string, f convertFlags) error {
	ctx := cmd.Context()
	log := logger.L()

	src, err := notice.ParseFile(path)
	if err != nil {
		return err
	}

	cfg := a.pipelineConfig(f.workers)
	cfg.TrackProvenance = f.diagnostics != ""
	terms := a.registry(f.ocidPrefix)
	convs := make([]orchestrator.Converter, len(terms))
	for i, t := range terms {
		convs[i] = t
	}
	p, err := orchestrator.NewPipeline(cfg, convs)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if f.verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), orchestrator.FormatRunHeader(src.NoticeID(), len(p.Converters())))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range p.Progress() {
				fmt.Fprintln(cmd.ErrOrStderr(), orchestrator.FormatProgress(ev))
			}
		}()
	}

	started := time.Now()
	res, runErr := p.Run(ctx, src)
	p.Close()
	wg.Wait()
	if res == nil {
		return runErr
	}
	log.Info("convert.done",
		"notice", src.NoticeID(),
		"run", res.RunID,
		"applied", res.Count(orchestrator.StatusApplied),
		"conflicts", len(res.Conflicts),
		"duration", time.Since(started).String(),
	)

	if backend, dbPath := a.auditBackend(f.auditDB); backend == audit.BackendKuzu {
		if err := recordRun(cmd, backend, dbPath, src, started, res); err != nil {
			return err
		}
	}

	if f.diagnostics != "" {
		diag := export.BuildDiagnostics(src.NoticeID(), src.NoticeType(), res)
		if err := export.WriteJSONFile(f.diagnostics, diag, true); err != nil {
			return err
		}
	}

	if res.Count(orchestrator.StatusApplied) == 0 {
		return errors.Join(runErr, errNothingApplied)
	}
	if err := writeRelease(cmd.OutOrStdout(), res, f); err != nil {
		return err
	}
	return runErr
}

func recordRun(cmd *cobra.Command, backend, dbPath string, src *notice.Notice, started time.Time, res *orchestrator.Result) error {
	store, err := audit.Open(cmd.Context(), backend, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(cmd.Context(), audit.FromResult(src.NoticeID(), src.NoticeType(), started, res))
}

func writeRelease(stdout io.Writer, res *orchestrator.Result, f convertFlags) error {
	switch {
	case f.diagram:
		return writeOutput(stdout, f.output, func(w io.Writer) error {
			_, err := io.WriteString(w, export.GenerateMermaid(res.Release.Snapshot()))
			return err
		})
	case f.query != "":
		sel, err := export.Query(res.Release, f.query, f.indent)
		if err != nil {
			return err
		}
		return writeOutput(stdout, f.output, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, sel)
			return err
		})
	case f.output != "":
		return export.WriteJSONFile(f.output, res.Release, f.indent)
	default:
		return export.WriteJSON(stdout, res.Release, f.indent)
	}
}

// writeOutput runs write against path, or stdout when path is empty.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
