package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/prscatalog/internal/domain"
	"github.com/Ning0612/prscatalog/internal/logger"
	"github.com/Ning0612/prscatalog/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var (
	historyLimit     int
	historyPartition string
	historyRun       string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show")
	historyCmd.Flags().StringVarP(&historyPartition, "partition", "p", "", "Only show one partition (body, ms, sd)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show every partition of one run, by id or id prefix")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	partition := ""
	if historyPartition != "" {
		role, err := domain.ParseRole(historyPartition)
		if err != nil {
			return err
		}
		partition = string(role)
	}

	history, err := state.NewManager(cfg.State.Dir)
	if err != nil {
		return err
	}
	defer history.Close()

	var records []state.PartitionRecord
	if historyRun != "" {
		records, err = history.GetRun(historyRun)
	} else {
		records, err = history.GetHistory(partition, historyLimit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tPARTITION\tSTATUS\tCOPIED\tADDED\tREMOVED\tITEMS\tPLAYLISTS\tSOURCE\tLAST\tERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.StartTime.Local().Format(time.DateTime),
			shortID(r.RunID),
			r.Partition,
			r.Status,
			r.Copied,
			r.Added,
			r.Removed,
			r.Items,
			r.Playlists,
			r.SourceID,
			r.LastID,
			r.Error,
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
