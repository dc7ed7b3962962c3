package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/SakshiShukla1/forensight/internal/bus"
	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/ingest"
	"github.com/SakshiShukla1/forensight/internal/scan"
	"github.com/SakshiShukla1/forensight/internal/store"
	"github.com/SakshiShukla1/forensight/internal/ui"
)

var (
	noTUI     bool
	watchDrop bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the investigation dashboard",
	Long: `Start the ForenSight dashboard:

1. Terminal User Interface for case and evidence management
2. Drop-folder watcher for offline scan results
3. Evidence notifications over Redis Streams (optional)

The dashboard keeps at most one scan in flight at a time; evidence is
appended to the active case most-recent-first and each record is
immutable once ingested.

Examples:
  # Start with the TUI (default)
  forensight serve

  # Headless: only the drop-folder watcher runs
  forensight serve --no-tui

  # Point at a different analysis backend
  forensight serve --backend http://10.0.0.5:5000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Run in headless mode without TUI")
	serveCmd.Flags().BoolVar(&watchDrop, "watch-drop", true, "Watch the drop folder for offline scan results")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	// File logging keeps the terminal clean while the TUI owns it.
	var logger *log.Logger
	willUseTUI := !noTUI && canInitializeTUI()
	if willUseTUI {
		if logFile := setupFileLogger(); logFile != nil {
			logger = log.New(io.MultiWriter(logFile, &errorFilterWriter{os.Stderr}), "[serve] ", log.LstdFlags)
			defer logFile.Close()
		} else {
			logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
		}
	} else {
		logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
	}

	logger.Println("Starting ForenSight dashboard")

	logger.Println("Initializing archive...")
	archive, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	defer archive.Close()

	logger.Println("Connecting to notification bus...")
	busLogger := logger
	if willUseTUI {
		busLogger = log.New(io.Discard, "", 0)
	}
	eventBus := bus.NewBus(config.Redis.URL, busLogger)
	defer eventBus.Close()

	scanner, err := scan.NewHTTPClient(config.Backend.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scan client: %w", err)
	}

	cases := caselog.NewStore(nil)
	pipeline := evidence.NewPipeline(nil)
	recorder := ingest.NewRecorder(pipeline, cases, archive, eventBus, logger)

	var dashboard *ui.Dashboard
	if willUseTUI {
		dashboard = ui.NewDashboard(ctx, cases, archive, scanner, recorder, config.Export.Dir, logger)
	}

	if watchDrop {
		if err := os.MkdirAll(config.Ingest.DropDir, 0o755); err != nil {
			logger.Printf("Warning: could not create drop directory %s: %v", config.Ingest.DropDir, err)
		}
		dropLogger := logger
		if willUseTUI {
			dropLogger = log.New(io.Discard, "", 0)
		}
		opts := ingest.DropOptions{
			Dir:    config.Ingest.DropDir,
			Watch:  true,
			Logger: dropLogger,
		}
		if dashboard != nil {
			opts.OnIngest = dashboard.NotifyIngest
		}
		dropIngestor := ingest.NewDropIngestor(recorder, opts)
		go func() {
			if err := dropIngestor.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Printf("Drop ingest error: %v", err)
			}
		}()
	}

	if willUseTUI {
		logger.Println("Starting TUI...")
		if err := dashboard.Start(ctx); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		logger.Println("TUI exited")
		return nil
	}

	if noTUI {
		logger.Println("Running in headless mode (drop-folder ingestion only)...")
	} else {
		logger.Println("TUI cannot be initialized in this terminal, running headless")
		logger.Println("For the dashboard, use a native terminal or SSH with a proper TERM")
	}

	<-ctx.Done()
	logger.Println("Received shutdown signal")
	logger.Println("ForenSight stopped")
	return nil
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}
	if err := screen.Init(); err != nil {
		return false
	}
	screen.Fini()
	return true
}

// setupFileLogger creates a log file for TUI mode
func setupFileLogger() *os.File {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil
	}
	logPath := filepath.Join(logDir, "forensight-serve.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return logFile
}

// errorFilterWriter only writes error messages to the underlying writer
// so the TUI screen is not corrupted by routine log lines.
type errorFilterWriter struct {
	writer io.Writer
}

func (w *errorFilterWriter) Write(p []byte) (n int, err error) {
	lc := strings.ToLower(string(p))
	if strings.Contains(lc, "error") ||
		strings.Contains(lc, "failed") ||
		strings.Contains(lc, "panic") {
		return w.writer.Write(p)
	}
	return len(p), nil
}
