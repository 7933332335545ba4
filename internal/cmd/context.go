package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dagucloud/rollbuf/internal/config"
	"github.com/dagucloud/rollbuf/internal/logger"
	"github.com/dagucloud/rollbuf/internal/logger/tag"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool

	values *viper.Viper
}

// NewContext loads the configuration, sets up the logger and logs any
// warnings collected while loading.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	values, err := bindFlags(cmd, flags...)
	if err != nil {
		return nil, err
	}
	quiet := values.GetBool(quietFlag.name)

	var configLoaderOpts []config.ConfigLoaderOption
	if cfgPath := values.GetString(configFlag.name); cfgPath != "" {
		configLoaderOpts = append(configLoaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.Load(configLoaderOpts...)
	if err != nil {
		return nil, err
	}

	opts := []logger.Option{
		logger.WithConsole(cmd.ErrOrStderr()),
		logger.WithHistory(cfg.Core.LogHistory),
	}
	if cfg.Core.Debug || os.Getenv("DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.Core.LogFormat))
	}
	ctx = logger.WithLogger(ctx, logger.NewLogger(opts...))

	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}
	if cfg.Paths.ConfigFileUsed != "" {
		logger.Debug(ctx, "Config loaded", tag.Config(cfg.Paths.ConfigFileUsed))
	}

	return &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
		values:  values,
	}, nil
}

// StringParam retrieves a string flag value.
func (c *Context) StringParam(name string) string {
	return c.values.GetString(name)
}

// BoolParam retrieves a boolean flag value.
func (c *Context) BoolParam(name string) bool {
	return c.values.GetBool(name)
}

// IntParam retrieves an integer flag value. The second result is false
// when the flag was left empty.
func (c *Context) IntParam(name string) (int, bool, error) {
	raw := c.values.GetString(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value for --%s: %q", name, raw)
	}
	return n, true, nil
}

// DurationParam retrieves a duration flag value, falling back to def when
// the flag was left empty.
func (c *Context) DurationParam(name string, def time.Duration) (time.Duration, error) {
	raw := c.values.GetString(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for --%s: %q", name, raw)
	}
	return d, nil
}

// NewCommand wires the flags and the run function into cmd. When runFunc
// fails, the recent log records are printed before the error is returned.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(ctx *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx, "Command failed", tag.Error(err))
			if !ctx.Quiet {
				printHistory(ctx)
			}
			return err
		}
		return nil
	}

	return cmd
}

func printHistory(ctx *Context) {
	entries := logger.FromContext(ctx).History()
	if len(entries) == 0 {
		return
	}
	w := ctx.Command.ErrOrStderr()
	_, _ = fmt.Fprintf(w, "Recent log records (%d):\n", len(entries))
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "  %s\n", e)
	}
}

// genRunID creates a new UUID string to identify a run.
func genRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
