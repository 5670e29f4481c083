package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	passportphoto "github.com/menta2k/passport-photo"
	"github.com/menta2k/passport-photo/internal/config"
	"github.com/menta2k/passport-photo/internal/utils"
)

var (
	configPath string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:           "passport-photo",
	Short:         "Turn a portrait into passport photos and printable sheets",
	Version:       passportphoto.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file, JSON or YAML (default "+config.GetConfigPath()+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")
}

func newLogger() *log.Logger {
	if quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

// loadConfig reads --config, or the default path when it exists, then
// applies flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	overrides.apply(cmd, cfg)
	return cfg, nil
}
