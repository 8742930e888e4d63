package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/export"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ingest"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ocr/azure"
	processor "github.com/joseph-ayodele/invoice-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/markdownfmt"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/textextract"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/validate"
)

var (
	flagModel      string
	flagAPIBase    string
	flagOut        string
	flagTimeout    int
	flagMaxRetries int
	flagLogLevel   string
	flagSaveMD     bool
)

func main() {
	root := &cobra.Command{
		Use:   "invoicepipe",
		Short: "Convert scanned invoices into structured, validated records",
	}
	root.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name (overrides OPENAI_MODEL)")
	root.PersistentFlags().StringVar(&flagAPIBase, "api-base", "", "LLM API base URL (overrides OPENAI_BASE_URL)")
	root.PersistentFlags().StringVarP(&flagOut, "out", "o", "", "output path (file or directory)")
	root.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "per-document timeout in seconds")
	root.PersistentFlags().IntVar(&flagMaxRetries, "max-retries", -1, "max retries per stage")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (DEBUG|INFO|WARN|ERROR)")
	root.PersistentFlags().BoolVar(&flagSaveMD, "save-markdown", false, "also write the intermediate markdown artifact")

	root.AddCommand(processCmd(), batchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>",
		Short: "Process a single invoice document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			coord := buildCoordinator(cfg, logger)

			result, runErr := coord.ProcessDocument(cmd.Context(), args[0])

			out := flagOut
			if out == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				out = filepath.Join(cfg.Pipeline.OutputDir, base+".json")
			}
			exp := export.NewService(logger)
			if err := exp.WriteResultJSON(result, out); err != nil {
				return err
			}
			return runErr
		},
	}
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process every supported document in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			coord := buildCoordinator(cfg, logger)

			results, err := coord.ProcessAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := flagOut
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), "invoices.xlsx")
			}
			exp := export.NewService(logger)
			if err := exp.WriteResultsXLSX(results, out); err != nil {
				return err
			}
			fmt.Printf("Processed %d documents, summary written to %s\n", len(results), out)
			return nil
		},
	}
}

// setup loads configuration, applies CLI overrides and installs the logger.
func setup() (*common.Config, *slog.Logger, error) {
	cfg := common.LoadConfig()
	if flagModel != "" {
		cfg.LLM.Model = flagModel
	}
	if flagAPIBase != "" {
		cfg.LLM.BaseURL = flagAPIBase
	}
	if flagTimeout > 0 {
		cfg.Pipeline.DocTimeout = time.Duration(flagTimeout) * time.Second
	}
	if flagMaxRetries >= 0 {
		cfg.Pipeline.MaxRetries = flagMaxRetries
	}
	if flagSaveMD {
		cfg.Pipeline.SaveMarkdown = true
	}
	if flagLogLevel != "" {
		cfg.LogLevel = common.ParseLogLevel(flagLogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func buildCoordinator(cfg *common.Config, logger *slog.Logger) *processor.Coordinator {
	recognizer := azure.NewClient(azure.Config{
		Endpoint:     cfg.OCR.Endpoint,
		APIKey:       cfg.OCR.APIKey,
		PollInterval: cfg.OCR.PollInterval,
	}, logger)

	completer := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	return processor.NewCoordinator(
		cfg.Pipeline,
		ingest.NewSource(logger),
		textextract.NewStage(recognizer, logger),
		markdownfmt.NewStage(completer, logger),
		parsefields.NewStage(completer, logger),
		validate.NewStage(cfg.Pipeline.Tolerance, logger),
		logger,
	)
}
