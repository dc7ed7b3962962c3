package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/SakshiShukla1/forensight/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list [case-id]",
	Short: "List archived cases, or the evidence log of one case",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		archive, err := store.NewStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid case ID %q", args[0])
			}
			return listEvidence(cmd, archive, id)
		}
		return listCases(cmd, archive)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listCases(cmd *cobra.Command, archive *store.Store) error {
	rows, err := archive.ListCases(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}
	if len(rows) == 0 {
		pterm.Warning.Println("No cases in the archive")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Evidence", "Created"}}
	for _, row := range rows {
		data = append(data, []string{
			strconv.FormatInt(row.ID, 10),
			row.Name,
			strconv.Itoa(row.EvidenceCount),
			row.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func listEvidence(cmd *cobra.Command, archive *store.Store, caseID int64) error {
	row, err := archive.GetCase(cmd.Context(), caseID)
	if err != nil {
		return fmt.Errorf("case %d not found in archive: %w", caseID, err)
	}
	records, err := archive.GetEvidenceByCase(cmd.Context(), caseID)
	if err != nil {
		return fmt.Errorf("failed to load evidence: %w", err)
	}

	pterm.FgCyan.Println(fmt.Sprintf("Case %d: %s", row.ID, row.Name))
	if len(records) == 0 {
		pterm.Warning.Println("No evidence recorded")
		return nil
	}

	data := pterm.TableData{{"#", "Type", "Target", "Verdict", "Risk", "Captured"}}
	total := len(records)
	for i, rec := range records {
		risk := fmt.Sprintf("%d%%", rec.Score)
		switch {
		case rec.Score >= 70:
			risk = pterm.FgRed.Sprint(risk)
		case rec.Score >= 40:
			risk = pterm.FgYellow.Sprint(risk)
		}
		data = append(data, []string{
			strconv.Itoa(total - i),
			string(rec.Module),
			rec.Target,
			rec.Verdict,
			risk,
			rec.Timestamp,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
