package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var confirmReset bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the evidence archive and the Redis evidence stream",
	Long: `Reset removes the SQLite archive files and deletes the Redis evidence
stream if Redis is configured.

WARNING: This operation is irreversible and will permanently delete all
archived cases and evidence.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&confirmReset, "yes", "y", false, "Automatically confirm reset operation")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Println("This will permanently delete all archived cases and evidence.")
	if !confirmReset {
		fmt.Print("Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	if err := resetArchive(); err != nil {
		return fmt.Errorf("failed to reset archive: %w", err)
	}

	if redisURL := viper.GetString("redis.url"); redisURL != "" {
		if err := resetEvidenceStream(ctx, redisURL); err != nil {
			pterm.Warning.Printf("Could not clear Redis stream: %v\n", err)
		}
	}

	pterm.Success.Println("Reset complete")
	return nil
}

func resetArchive() error {
	dbPath := viper.GetString("database.path")
	if dbPath == "" || dbPath == ":memory:" {
		fmt.Println("Archive is in-memory, nothing to remove")
		return nil
	}

	// WAL mode leaves sidecar files next to the database.
	var removed []string
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if _, err := os.Stat(file); err == nil {
			if err := os.Remove(file); err != nil {
				return fmt.Errorf("failed to remove %s: %w", file, err)
			}
			removed = append(removed, filepath.Base(file))
		}
	}

	if len(removed) == 0 {
		fmt.Println("No archive files found to remove")
		return nil
	}
	fmt.Printf("Removed archive files: %s\n", strings.Join(removed, ", "))
	return nil
}

func resetEvidenceStream(ctx context.Context, redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	n, err := client.Del(ctx, "forensight:evidence").Result()
	if err != nil {
		return fmt.Errorf("failed to delete evidence stream: %w", err)
	}
	if n > 0 {
		fmt.Println("Evidence stream cleared")
	}
	return nil
}
