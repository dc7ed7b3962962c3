package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/report"
	"github.com/SakshiShukla1/forensight/internal/store"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report <case-id>",
	Short: "Export the evidence report for an archived case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid case ID %q", args[0])
		}

		cfg := GetConfig()
		archive, err := store.NewStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()

		row, err := archive.GetCase(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("case %d not found in archive: %w", id, err)
		}
		records, err := archive.GetEvidenceByCase(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load evidence: %w", err)
		}

		snap := caselog.Snapshot{
			ID:            row.ID,
			Name:          row.Name,
			CreatedAt:     row.CreatedAt,
			EvidenceCount: len(records),
		}

		dir := reportOut
		if dir == "" {
			dir = cfg.Export.Dir
		}
		path, err := report.Write(dir, snap, records, time.Now())
		if err != nil {
			var empty *report.EmptyLogError
			if errors.As(err, &empty) {
				pterm.Warning.Println("Nothing to export. Case has no evidence.")
				return nil
			}
			return err
		}

		_ = archive.LogActivity(cmd.Context(), id, "report_exported", map[string]interface{}{
			"path": path,
		})
		pterm.Success.Println("Report written to " + path)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Output directory (default from config)")
	rootCmd.AddCommand(reportCmd)
}
