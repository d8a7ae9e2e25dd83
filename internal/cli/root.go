// Package cli implements the graflow command line tool.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "graflow",
	Short: "Execute visual workflow graphs against tasks",
	Long: `graflow runs directed graphs of typed workflow nodes against
inbound tasks such as emails.

Graphs, tasks and backend configs are plain JSON documents; remote
capabilities (mail transport, OCR, LLM completion) are configured via
flags, environment variables (GRAFLOW_*) or a config file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.graflow.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.PersistentFlags().String("mail-url", "", "base URL of the mail transport API")
	rootCmd.PersistentFlags().String("mail-key", "", "API key for the mail transport")
	rootCmd.PersistentFlags().String("ocr-url", "", "base URL of the OCR service")
	rootCmd.PersistentFlags().String("ocr-key", "", "API key for the OCR service")
	rootCmd.PersistentFlags().String("llm-url", "", "base URL of the LLM API (empty selects OpenAI)")
	rootCmd.PersistentFlags().String("llm-key", "", "API key for the LLM")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("mail.url", rootCmd.PersistentFlags().Lookup("mail-url"))
	viper.BindPFlag("mail.key", rootCmd.PersistentFlags().Lookup("mail-key"))
	viper.BindPFlag("ocr.url", rootCmd.PersistentFlags().Lookup("ocr-url"))
	viper.BindPFlag("ocr.key", rootCmd.PersistentFlags().Lookup("ocr-key"))
	viper.BindPFlag("llm.url", rootCmd.PersistentFlags().Lookup("llm-url"))
	viper.BindPFlag("llm.key", rootCmd.PersistentFlags().Lookup("llm-key"))
	viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".graflow")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("GRAFLOW")
	// Dotted keys like mail.url map to GRAFLOW_MAIL_URL.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// A missing default config file is fine.
		case cfgFile != "":
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		default:
			// A broken default config must not block the run, but it
			// should not be skipped silently either.
			fmt.Fprintf(os.Stderr, "warning: ignoring config file %s: %v\n", viper.ConfigFileUsed(), err)
		}
	}
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("graflow v0.1.0")
	},
}
