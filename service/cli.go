package service

import (
	"github.com/urfave/cli/v2"
)

const (
	HealthzEnabledFlagName = "healthz.enabled"
	HealthzAddrFlagName    = "healthz.addr"
	HealthzPortFlagName    = "healthz.port"

	MetricsEnabledFlagName = "metrics.enabled"
	MetricsAddrFlagName    = "metrics.addr"
	MetricsPortFlagName    = "metrics.port"
)

// ServerConfig holds the listen settings for one HTTP surface.
type ServerConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Config holds configuration for the long-running service surfaces. Both
// servers default to disabled so a run-once CI invocation opens no sockets.
type Config struct {
	Healthz ServerConfig
	Metrics ServerConfig
}

func prefixEnvVars(envPrefix, name string) []string {
	return []string{envPrefix + "_" + name}
}

// CLIFlags returns the flags controlling the healthz and metrics servers.
func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    HealthzEnabledFlagName,
			Usage:   "Enable the healthz server",
			Value:   false,
			EnvVars: prefixEnvVars(envPrefix, "HEALTHZ_ENABLED"),
		},
		&cli.StringFlag{
			Name:    HealthzAddrFlagName,
			Usage:   "Healthz server listening address",
			Value:   "0.0.0.0",
			EnvVars: prefixEnvVars(envPrefix, "HEALTHZ_ADDR"),
		},
		&cli.IntFlag{
			Name:    HealthzPortFlagName,
			Usage:   "Healthz server listening port",
			Value:   8080,
			EnvVars: prefixEnvVars(envPrefix, "HEALTHZ_PORT"),
		},
		&cli.BoolFlag{
			Name:    MetricsEnabledFlagName,
			Usage:   "Enable the metrics server",
			Value:   false,
			EnvVars: prefixEnvVars(envPrefix, "METRICS_ENABLED"),
		},
		&cli.StringFlag{
			Name:    MetricsAddrFlagName,
			Usage:   "Metrics server listening address",
			Value:   "0.0.0.0",
			EnvVars: prefixEnvVars(envPrefix, "METRICS_ADDR"),
		},
		&cli.IntFlag{
			Name:    MetricsPortFlagName,
			Usage:   "Metrics server listening port",
			Value:   7300,
			EnvVars: prefixEnvVars(envPrefix, "METRICS_PORT"),
		},
	}
}

// ReadCLIConfig builds a Config from parsed CLI flags.
func ReadCLIConfig(ctx *cli.Context) Config {
	return Config{
		Healthz: ServerConfig{
			Enabled: ctx.Bool(HealthzEnabledFlagName),
			Host:    ctx.String(HealthzAddrFlagName),
			Port:    ctx.Int(HealthzPortFlagName),
		},
		Metrics: ServerConfig{
			Enabled: ctx.Bool(MetricsEnabledFlagName),
			Host:    ctx.String(MetricsAddrFlagName),
			Port:    ctx.Int(MetricsPortFlagName),
		},
	}
}
