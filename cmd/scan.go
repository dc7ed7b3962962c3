package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/SakshiShukla1/forensight/internal/bus"
	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/ingest"
	"github.com/SakshiShukla1/forensight/internal/scan"
	"github.com/SakshiShukla1/forensight/internal/store"
)

var (
	scanCaseID   int64
	scanCaseName string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single analysis without the dashboard",
	Long: `Run one analysis against the backend and record the result as evidence.

The result is appended to a case and archived. Use --case to continue a
case already in the archive, or --name to label a fresh one.`,
}

var scanURLCmd = &cobra.Command{
	Use:   "url <target>",
	Short: "Analyze a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), evidence.ModuleURL, args[0])
	},
}

var scanEmailCmd = &cobra.Command{
	Use:   "email <address-or-content>",
	Short: "Analyze an email address or message content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), evidence.ModuleEmail, args[0])
	},
}

var scanFileCmd = &cobra.Command{
	Use:   "file <path-or-hash>",
	Short: "Analyze a file path or hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), evidence.ModuleFile, args[0])
	},
}

var scanBrowserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Sweep the system browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), evidence.ModuleBrowser, "")
	},
}

func init() {
	scanCmd.PersistentFlags().Int64Var(&scanCaseID, "case", 0, "Archived case ID to append to")
	scanCmd.PersistentFlags().StringVar(&scanCaseName, "name", "CLI Session", "Case name when no --case is given")

	scanCmd.AddCommand(scanURLCmd)
	scanCmd.AddCommand(scanEmailCmd)
	scanCmd.AddCommand(scanFileCmd)
	scanCmd.AddCommand(scanBrowserCmd)
	rootCmd.AddCommand(scanCmd)
}

func runScan(ctx context.Context, module evidence.Module, target string) error {
	if module != evidence.ModuleBrowser && strings.TrimSpace(target) == "" {
		return fmt.Errorf("a target is required for %s scans", module)
	}

	cfg := GetConfig()
	logger := log.New(io.Discard, "", 0)

	archive, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	scanner, err := scan.NewHTTPClient(cfg.Backend.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend client: %w", err)
	}

	cases := caselog.NewStore(nil)
	if scanCaseID != 0 {
		if err := resumeCase(ctx, cases, archive, scanCaseID); err != nil {
			return err
		}
	} else {
		snap, err := cases.CreateCase(scanCaseName)
		if err != nil {
			return err
		}
		if err := archive.SaveCase(ctx, snap.ID, snap.Name, snap.CreatedAt); err != nil {
			return fmt.Errorf("failed to archive case: %w", err)
		}
	}

	b := bus.NewBus(cfg.Redis.URL, logger)
	defer b.Close()
	recorder := ingest.NewRecorder(evidence.NewPipeline(nil), cases, archive, b, logger)

	label := string(module)
	if target != "" {
		label = fmt.Sprintf("%s %s", module, target)
	}
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Analyzing %s...", label))

	var res *scan.Result
	if module == evidence.ModuleBrowser {
		res, err = scanner.BrowserScan(ctx)
	} else {
		res, err = scanner.AnalyzeURL(ctx, target)
	}
	if err != nil {
		spinner.Fail("Analysis failed")
		return err
	}

	rec, err := recorder.Record(ctx, module, target, res)
	if err != nil {
		spinner.Fail("Result rejected")
		return err
	}
	spinner.Success("Analysis complete")

	printRecord(rec)
	snap, _ := cases.ActiveCase()
	pterm.Success.Println(fmt.Sprintf("Recorded as evidence %d in case %d (%s)", rec.ID, snap.ID, snap.Name))
	return nil
}

// resumeCase loads an archived case and its evidence log back into the
// session store so new evidence continues the same case.
func resumeCase(ctx context.Context, cases *caselog.Store, archive *store.Store, id int64) error {
	row, err := archive.GetCase(ctx, id)
	if err != nil {
		return fmt.Errorf("case %d not found in archive: %w", id, err)
	}
	records, err := archive.GetEvidenceByCase(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load evidence for case %d: %w", id, err)
	}
	return cases.RestoreCase(row.ID, row.Name, row.CreatedAt, records)
}

func printRecord(rec evidence.Record) {
	verdict := rec.Verdict
	switch {
	case rec.Score >= 70:
		verdict = pterm.FgRed.Sprint(verdict)
	case rec.Score >= 40:
		verdict = pterm.FgYellow.Sprint(verdict)
	default:
		verdict = pterm.FgGreen.Sprint(verdict)
	}

	data := pterm.TableData{
		{"Field", "Value"},
		{"Type", string(rec.Module)},
		{"Target", rec.Target},
		{"Verdict", verdict},
		{"Risk", fmt.Sprintf("%d%%", rec.Score)},
		{"Captured", rec.Timestamp},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if len(rec.Details) > 0 {
		pterm.FgCyan.Println("Findings:")
		for _, d := range rec.Details {
			fmt.Printf("  - %s\n", strings.TrimSpace(d))
		}
	}
}
