package logging

import (
	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

func prefixEnvVars(envPrefix, name string) []string {
	return []string{envPrefix + "_" + name}
}

// CLIFlags returns the logging flags with environment variables prefixed by
// envPrefix.
func CLIFlags(envPrefix string) []cli.Flag {
	defaults := DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LevelFlagName,
			Usage:   "The lowest log level that will be output (trace|debug|info|warn|error|crit)",
			Value:   defaults.Level,
			EnvVars: prefixEnvVars(envPrefix, "LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    FormatFlagName,
			Usage:   "Format the log output (text|logfmt|json)",
			Value:   defaults.Format,
			EnvVars: prefixEnvVars(envPrefix, "LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output if in terminal mode",
			Value:   defaults.Color,
			EnvVars: prefixEnvVars(envPrefix, "LOG_COLOR"),
		},
	}
}

// ReadCLIConfig extracts the logging settings from parsed CLI flags.
func ReadCLIConfig(ctx *cli.Context) Config {
	return Config{
		Level:  ctx.String(LevelFlagName),
		Format: ctx.String(FormatFlagName),
		Color:  ctx.Bool(ColorFlagName),
	}
}
