package cmdutil

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level string
}

var loggerConfigInst = loggerConfig{
	level: zerolog.InfoLevel.String(),
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level, overrides log_level from the configuration",
	)
}

// Logger returns a console logger at the configured level, unless --level
// was given.
func Logger(cmd *cobra.Command, configured string) (zerolog.Logger, error) {
	level := loggerConfigInst.level
	if f := cmd.Flag("level"); configured != "" && (f == nil || !f.Changed) {
		level = configured
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), nil
}
