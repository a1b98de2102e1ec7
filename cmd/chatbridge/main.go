// Command chatbridge runs the chat gateway and offers a small client for
// trying a backend from the terminal.
//
//	chatbridge serve                 start the HTTP gateway
//	chatbridge chat "hello there"    stream one reply to stdout
//	chatbridge models                list the backend's models
//
// Settings come from config.yaml and CHATBRIDGE_* variables; a .env file
// in the working directory is loaded first.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/debug"
)

var version = "dev"

var (
	configPath string
	envFile    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatbridge",
		Short:         "Streaming chat gateway for LLM backends",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $CHATBRIDGE_CONFIG, ./config.yaml, /etc/chatbridge/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	root.AddCommand(newServeCmd(), newChatCmd(), newModelsCmd())
	return root
}

// loadEnvFile loads path without overriding variables that are already
// set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig loads the configuration and installs the logger it selects.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
