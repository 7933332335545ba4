package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	isBool                               bool
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/rollbuf/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	linesFlag = commandLineFlag{
		name:      "lines",
		shorthand: "n",
		usage:     "number of lines to keep (default is buffer.size from the config)",
	}
	followFlag = commandLineFlag{
		name:      "follow",
		shorthand: "f",
		usage:     "keep printing lines as they are appended",
		isBool:    true,
	}
	countFlag = commandLineFlag{
		name:         "count",
		defaultValue: "5",
		usage:        "number of samples to take (0 samples until interrupted)",
	}
	retentionFlag = commandLineFlag{
		name:  "retention",
		usage: "how long samples are kept (default is monitoring.retention from the config)",
	}
	intervalFlag = commandLineFlag{
		name:      "interval",
		shorthand: "i",
		usage:     "time between samples (default is monitoring.interval from the config)",
	}
	outputFlag = commandLineFlag{
		name:         "output",
		shorthand:    "o",
		defaultValue: "table",
		usage:        "output format (table, json or yaml)",
	}
)

// baseFlags are registered on every command.
var baseFlags = []commandLineFlag{configFlag, quietFlag}

func initFlags(cmd *cobra.Command, flags ...commandLineFlag) {
	for _, flag := range slices.Concat(baseFlags, flags) {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
			continue
		}
		cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
	}
}

// bindFlags binds the command's flags to a fresh viper instance so that
// concurrent commands do not share state.
func bindFlags(cmd *cobra.Command, flags ...commandLineFlag) (*viper.Viper, error) {
	v := viper.New()
	for _, flag := range slices.Concat(baseFlags, flags) {
		if err := v.BindPFlag(flag.name, cmd.Flags().Lookup(flag.name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return v, nil
}
