package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/runlog"
)

func newLedgerCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect processing history",
	}
	cmd.AddCommand(newLedgerShowCommand(cmdCtx))
	cmd.AddCommand(newLedgerStatsCommand(cmdCtx))
	cmd.AddCommand(newLedgerRunsCommand(cmdCtx))
	return cmd
}

func openLedger(cmdCtx *commandContext) (*ledger.Ledger, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.Paths.OutputDir, ledger.Filename)
	return ledger.Open(path, logging.NewNop()), nil
}

func newLedgerShowCommand(cmdCtx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recorded files, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := openLedger(cmdCtx)
			if err != nil {
				return err
			}
			entries := led.Entries()
			if len(entries) == 0 {
				fmt.Println("Ledger is empty.")
				return nil
			}

			sorted := make([]ledger.Entry, 0, len(entries))
			for _, entry := range entries {
				sorted = append(sorted, entry)
			}
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i].ProcessedAt > sorted[j].ProcessedAt
			})
			if limitFlag > 0 && len(sorted) > limitFlag {
				sorted = sorted[:limitFlag]
			}

			rows := make([][]string, 0, len(sorted))
			for _, entry := range sorted {
				status := "ok"
				if !entry.Success {
					status = "failed"
				}
				detail := entry.OutputFile
				if !entry.Success {
					detail = entry.Error
				}
				rows = append(rows, []string{
					truncate(filepath.Base(entry.SourceFile), 40),
					status,
					entry.ProcessedAt,
					formatSeconds(entry.Duration),
					truncate(detail, 60),
				})
			}
			fmt.Println(renderTable(
				[]string{"File", "Status", "Processed at", "Duration", "Output / error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Show at most this many entries")
	return cmd
}

func newLedgerStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cross-run totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := openLedger(cmdCtx)
			if err != nil {
				return err
			}
			agg := led.Stats()

			rows := [][]string{
				{"Total processed", fmt.Sprintf("%d", agg.TotalProcessed)},
				{"Successful", fmt.Sprintf("%d", agg.Successful)},
				{"Failed", fmt.Sprintf("%d", agg.Failed)},
				{"Media duration", formatSeconds(agg.TotalDuration)},
				{"Processing time", formatSeconds(agg.TotalProcessingTime)},
			}
			if agg.TotalDuration > 0 {
				rows = append(rows, []string{
					"Realtime factor",
					fmt.Sprintf("%.2fx", agg.TotalProcessingTime/agg.TotalDuration),
				})
			}
			fmt.Println(renderKeyValues("Ledger totals", rows))
			return nil
		},
	}
}

func newLedgerRunsCommand(cmdCtx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := "ok"
				switch {
				case run.Interrupted:
					status = "interrupted"
				case run.FinishedAt.IsZero():
					status = "incomplete"
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(time.DateTime),
					run.Model,
					fmt.Sprintf("%d", run.Workers),
					fmt.Sprintf("%d/%d", run.Successful, run.Discovered),
					fmt.Sprintf("%d", run.Failed),
					fmt.Sprintf("%d", run.Skipped),
					status,
				})
			}
			fmt.Println(renderTable(
				[]string{"Run", "Started", "Model", "Workers", "Done", "Failed", "Skipped", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Show at most this many runs")
	return cmd
}
