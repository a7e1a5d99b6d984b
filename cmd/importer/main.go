// Команда importer загружает вопросы из CSV или XLSX в существующий тест.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	app2 "github.com/IT-Nick/testpoint/internal/app"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/domain/questions/importer"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	"github.com/IT-Nick/testpoint/internal/infra/config"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config file")
		testID     = flag.String("test", "", "test id to import questions into")
		file       = flag.String("file", "", "CSV or XLSX file with questions")
		sheet      = flag.String("sheet", "", "XLSX sheet name, first sheet by default")
	)
	flag.Parse()

	if *testID == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *testID, *file, *sheet); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, testID, file, sheet string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := app2.NewLogger(cfg, os.Stderr)

	store, err := app2.InitDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := readRows(file, sheet, cfg.Import.MaxRows)
	if err != nil {
		return err
	}

	svc := questionsService.NewQuestionService(store, questionsService.Options{
		MaxAttempts: cfg.Lifecycle.MaxTxRetries,
		Import:      importer.Options{OneBased: *cfg.Import.OneBasedIndex},
		Logger:      log,
	})
	result, err := svc.BulkImportQuestions(ctx, model.SystemActor, testID, rows)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readRows(file, sheet string, maxRows int) ([]importer.Row, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return importer.ReadCSV(f, maxRows)
	case ".xlsx":
		return importer.ReadXLSX(f, sheet, maxRows)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(file))
	}
}
