package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/proxer/config"
	"github.com/s0up4200/proxer/proxer"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  proxer.Requester

	// Global flags
	testMode bool
	token    string

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proxer",
	Short: "A command line client for the Proxer web API",
	Long: `proxer sends requests to the Proxer web API (v1) and prints the
normalized responses as JSON.

Credentials and endpoint settings are read from config.yaml (., ~/.proxer,
/etc/proxer) and PROXER_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion records the build information shown by the version command
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "send requests in test mode instead of using an API key")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "session token for requests that require a login")
}

// initializeApp initializes the configuration and the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging, os.Stderr)

	// Command line overrides
	if cmd.Flags().Changed("test-mode") {
		cfg.Proxer.TestMode = testMode
	}
	if cmd.Flags().Changed("token") {
		cfg.Proxer.Token = token
	}

	c, err := cfg.NewClient(logger)
	if err != nil {
		return fmt.Errorf("failed to create Proxer client: %w", err)
	}
	client = c

	logger.Debug().
		Str("key", c.Key().String()).
		Str("host", cfg.Proxer.Host).
		Msg("Client ready")

	return nil
}

// setupLogger configures the zerolog logger. Color is only used when out is
// a terminal.
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(out).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(out),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
