package main

import (
	"Go-Order-Intake/cmd/config"
	migration "Go-Order-Intake/cmd/database/migrate"
	"Go-Order-Intake/internal/logger"
	"Go-Order-Intake/internal/metrics"
	"Go-Order-Intake/internal/utils"
	"Go-Order-Intake/pkg/backend"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	withDB bool
	remote bool
)

var rootCmd = &cobra.Command{
	Use:   "order-intake",
	Short: "Order intake service - purchase-order cards, analysis and submission",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.LoadConfig()
		if err := logger.Initialize(utils.GetConfig("LOG_LEVEL"), utils.GetConfig("LOG_FILE")); err != nil {
			return err
		}
		metrics.Initialize()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		var db *gorm.DB
		if withDB {
			var err error
			if db, err = config.ConnectDB(); err != nil {
				return err
			}
		}

		app, err := config.NewApp(db)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Listen(":" + utils.GetConfig("PORT"))
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the submission log tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDB()
		if err != nil {
			return err
		}
		return migration.Migrate(db)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse pasted order text and print the submitted row",
	Long: `Reads "key: value" order text from a file or stdin and prints the
parsed record and its canonical row. With --remote, text that does not look
like a template is sent to the parse-order backend instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		rec := record.Parse(text)
		if remote && !record.IsTemplate(text) {
			client := backend.NewClient(utils.GetConfig("API_URL"), 60*time.Second)
			if rec, err = client.ParseOrder(cmd.Context(), text); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), record.Format(rec))
		return printJSON(cmd.OutOrStdout(), record.Serialize(rec))
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Downscale an image and run it through analyze-image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		file, result := compress.DownscaleWithResult(compress.File{
			Name:        filepath.Base(args[0]),
			ContentType: mime.TypeByExtension(filepath.Ext(args[0])),
			Data:        data,
			ModTime:     info.ModTime(),
		})
		logger.Log.Info("image prepared",
			zap.String("result", string(result)),
			zap.Int("before", len(data)),
			zap.Int("after", len(file.Data)),
		)

		client := backend.NewClient(utils.GetConfig("API_URL"), 60*time.Second)
		rec, err := client.AnalyzeImage(cmd.Context(), compress.DataURL(file))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withDB, "db", true, "Record submissions in the database")
	parseCmd.Flags().BoolVar(&remote, "remote", false, "Use the parse-order backend for free-form text")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	return string(data), err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
