package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"balancecam/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envConfig = "BALANCECAM_CONFIG"
	envVideo  = "BALANCECAM_VIDEO"
)

var (
	// cfg is the configuration shared by subcommands, loaded before they run
	cfg config.Config

	configPath string
	envFile    string
	debug      bool
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "balancecam",
	Short:         "Read an analog balance scale from video",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		setupLogging(debug)

		var err error
		cfg, err = loadConfig(configPath)
		return err
	},
}

// loadConfig resolves the config file from the flag, then the environment,
// falling back to the built-in defaults.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path == "" {
		logger.Debug().Msg("Using built-in configuration")
		return config.Default(), nil
	}

	c, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	logger.Debug().Str("path", path).Msg("Loaded configuration")
	return c, nil
}

// videoPath picks the positional argument or the environment default.
func videoPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p := os.Getenv(envVideo); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no video given: pass a path or set %s", envVideo)
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (default: $"+envConfig+" or built-in)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with defaults")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
