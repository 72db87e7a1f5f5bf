package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/horizons/config"
	"github.com/Gurpartap/horizons/internal/runtimewire"
)

// cli carries what every subcommand shares once the root has loaded
// configuration.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	// lookupEnv and deps are replaced in tests.
	lookupEnv func(string) (string, bool)
	deps      runtimewire.Dependencies

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return (&cli{stdin: stdin, stdout: stdout, stderr: stderr}).command()
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "horizons",
		Short:         "Calendar and project assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.load()
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file (default "+config.DefaultPath()+")")
	flags.StringVar(&c.envFile, "env-file", "", "dotenv file (default .env)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(c.serveCommand(), c.chatCommand(), c.importCommand())
	return root
}

func (c *cli) load() error {
	cfg, err := config.LoadWith(config.Options{
		Path:      c.configPath,
		EnvFile:   c.envFile,
		LookupEnv: c.lookupEnv,
	})
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = config.LogFormat(c.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = newLogger(c.stderr, level, cfg.Log.Format)
	return nil
}

func (c *cli) runtime(cmd *cobra.Command) (*runtimewire.Runtime, error) {
	rt, err := runtimewire.NewWithDependencies(cmd.Context(), c.cfg, c.logger, c.deps)
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	return rt, nil
}
