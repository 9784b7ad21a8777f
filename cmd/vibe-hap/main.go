// Package main provides the vibe-hap command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// app carries state shared by the subcommands.
type app struct {
	cfgFile string
	debug   bool
	quiet   bool
	logger  *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.Execute()
	a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-hap",
		Short: "Parent-of-origin haplotypes around an index variant",
		Long: `vibe-hap phases heterozygous samples against their parents at an index
variant, then reports the haplotype of every biallelic SNV within a window
either side of it.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.debug, a.quiet)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.vibe-hap.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log debugging information to stderr")
	root.PersistentFlags().BoolVar(&a.quiet, "quiet", false, "Only log warnings and errors")

	root.AddCommand(newPhaseCmd(a))
	root.AddCommand(newFreqDBCmd(a))
	root.AddCommand(newConfigCmd())
	return root
}

// initConfig reads the config file and VIBE_HAP_* environment variables.
// A missing default config file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".vibe-hap.yaml"))
		}
	}
	viper.SetEnvPrefix("VIBE_HAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if missing && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}
