package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/graflow/graflow/internal/engine"
	"github.com/graflow/graflow/internal/providers"
	"github.com/graflow/graflow/internal/telemetry"
	"github.com/graflow/graflow/pkg/api"
)

var (
	flowFile   string
	taskFile   string
	configFile string
	eventsDB   string
	production bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a flow graph against a task",
	Long: `Run loads a flow graph and a task from JSON files, executes the
flow, and prints the run result as JSON.

A backend config (for apiCall nodes) may be supplied with --backend.
With --events, execution events are additionally persisted to a SQLite
database for later inspection.`,
	RunE: runFlow,
}

func init() {
	runCmd.Flags().StringVarP(&flowFile, "flow", "f", "", "flow graph JSON file (required)")
	runCmd.Flags().StringVarP(&taskFile, "task", "t", "", "task JSON file (required)")
	runCmd.Flags().StringVarP(&configFile, "backend", "b", "", "backend config JSON file")
	runCmd.Flags().StringVar(&eventsDB, "events", "", "SQLite database for execution events")
	runCmd.Flags().BoolVar(&production, "production", false, "suppress response-body previews in error messages")
	runCmd.MarkFlagRequired("flow")
	runCmd.MarkFlagRequired("task")
}

func runFlow(cmd *cobra.Command, args []string) error {
	var graph api.Graph
	if err := readJSON(flowFile, &graph); err != nil {
		return fmt.Errorf("load flow: %w", err)
	}

	var task api.Task
	if err := readJSON(taskFile, &task); err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	var backend *api.BackendConfig
	if configFile != "" {
		var cfg api.BackendConfig
		if err := readJSON(configFile, &cfg); err != nil {
			return fmt.Errorf("load backend config: %w", err)
		}
		backend = &cfg
	}

	logger := newLogger()
	observers := []api.Observer{api.NewLoggingObserver(logger)}

	if eventsDB != "" {
		db, err := sql.Open("sqlite", eventsDB)
		if err != nil {
			return fmt.Errorf("open events database: %w", err)
		}
		defer db.Close()

		sink, err := telemetry.NewSQLiteEventStore(db)
		if err != nil {
			return fmt.Errorf("init event store: %w", err)
		}
		recorder := telemetry.NewRecorder(sink, 0)
		defer recorder.Close()
		observers = append(observers, telemetry.NewSinkObserver(recorder))
	}

	eng := engine.New(engine.Config{
		Observer:   api.NewCompositeObserver(observers...),
		Logger:     logger,
		Mail:       mailTransport(),
		OCR:        ocrProvider(),
		LLM:        llmProvider(),
		Production: production,
	})

	result := eng.ExecuteFlow(cmd.Context(), graph, task, backend)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

	if !result.Success {
		return fmt.Errorf("flow run failed: %s", result.Error)
	}
	return nil
}

func mailTransport() api.EmailTransport {
	url := viper.GetString("mail.url")
	if url == "" {
		return nil
	}
	return providers.NewHTTPMailTransport(url, viper.GetString("mail.key"), nil)
}

func ocrProvider() api.OCRProvider {
	url := viper.GetString("ocr.url")
	if url == "" {
		return nil
	}
	return providers.NewHTTPOCRProvider(url, viper.GetString("ocr.key"), nil)
}

func llmProvider() api.LLMProvider {
	key := viper.GetString("llm.key")
	if key == "" {
		return nil
	}
	return providers.NewOpenAILLMProvider(viper.GetString("llm.url"), key, viper.GetString("llm.model"), nil)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
