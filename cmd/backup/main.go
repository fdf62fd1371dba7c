package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"hskmaster/internal/app"
	"hskmaster/internal/config"
	"hskmaster/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Define subcommands
	exportCmd := pflag.NewFlagSet("export", pflag.ExitOnError)
	importCmd := pflag.NewFlagSet("import", pflag.ExitOnError)
	config.RegisterFlags(exportCmd)
	config.RegisterFlags(importCmd)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: hsk_backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Do not ask for confirmation before clearing")

	var fs *pflag.FlagSet
	switch os.Args[1] {
	case "export":
		fs = exportCmd
	case "import":
		fs = importCmd
	default:
		printUsage()
		os.Exit(1)
	}
	fs.Parse(os.Args[2:])

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "export":
		err = handleExport(ctx, a, log, *exportOutput)
	case "import":
		if *importInput == "" {
			fmt.Println("Error: --input flag is required")
			importCmd.PrintDefaults()
			a.Close()
			os.Exit(1)
		}
		err = handleImport(ctx, a, log, *importInput, *importClear, *importYes)
	}
	if err != nil {
		a.Close()
		log.Fatal(err)
	}
}

func handleExport(ctx context.Context, a *app.App, log logrus.FieldLogger, outputPath string) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("hsk_backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	backup, err := a.Backup.Export(ctx, outputPath)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":     outputPath,
		"size":     humanize.Bytes(uint64(info.Size())),
		"records":  len(backup.Records),
		"attempts": len(backup.Attempts),
	}).Info("export complete")
	return nil
}

func handleImport(ctx context.Context, a *app.App, log logrus.FieldLogger, inputPath string, clearData, yes bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputPath)
	}

	if clearData && !yes {
		fmt.Print("WARNING: This will delete all existing learning data. Type 'yes' to confirm: ")
		confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			log.Info("import cancelled")
			return nil
		}
	}

	backup, err := a.Backup.Import(ctx, inputPath, clearData)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"backup_id": backup.ID.String(),
		"exported":  humanize.Time(backup.ExportedAt),
		"records":   len(backup.Records),
		"attempts":  len(backup.Attempts),
	}).Info("import complete")
	return nil
}

func printUsage() {
	fmt.Println("HSK Master Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export learning data to a JSON file")
	fmt.Println("  backup import [options]    Import learning data from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  --output <file>    Output file path (default: hsk_backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  --input <file>     Input file path (required)")
	fmt.Println("  --clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println("  --yes              Skip the confirmation prompt of --clear")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Export learning records, test attempts and progress")
	fmt.Println("  backup export")
	fmt.Println("  backup export --output mybackup.json")
	fmt.Println()
	fmt.Println("  # Import (merge with existing data)")
	fmt.Println("  backup import --input backup.json")
	fmt.Println()
	fmt.Println("  # Import (replace all data)")
	fmt.Println("  backup import --input backup.json --clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  HSK_DATABASE_TYPE       Database type: sqlite, sqlite-pure, postgres or mysql (default: sqlite)")
	fmt.Println("  HSK_DATABASE_PATH       SQLite database path (default: ./hskmaster.db)")
	fmt.Println("  HSK_DATABASE_URL        PostgreSQL or MySQL connection URL")
	fmt.Println("  HSK_COUNTERS_BACKEND    Progress store: bolt, sql or memory (default: bolt)")
}
