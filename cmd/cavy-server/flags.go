package main

import (
	"github.com/urfave/cli/v2"

	"github.com/tvanlaerhoven/cavy-cli/internal/config"
)

const envVarPrefix = "CAVY_"

func envVars(name string) []string {
	return []string{envVarPrefix + name}
}

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Value:   "cavy.yaml",
		EnvVars: envVars("CONFIG"),
		Usage:   "Path to the yaml config file; a missing default file is ignored",
	}
	HostFlag = &cli.StringFlag{
		Name:    "host",
		EnvVars: envVars("HOST"),
		Usage:   "Interface to listen on",
	}
	PortFlag = &cli.IntFlag{
		Name:    "port",
		EnvVars: envVars("PORT"),
		Usage:   "Port the agent connects to",
	}
	DevFlag = &cli.BoolFlag{
		Name:    "dev",
		EnvVars: envVars("DEV"),
		Usage:   "Keep running after a run completes so the app can be reloaded and re-run",
	}
	XMLFlag = &cli.BoolFlag{
		Name:    "xml",
		EnvVars: envVars("XML"),
		Usage:   "Also write a JUnit XML report when a run completes",
	}
	XMLFileFlag = &cli.StringFlag{
		Name:    "xml-file",
		EnvVars: envVars("XML_FILE"),
		Usage:   "Path of the JUnit XML report",
	}
	ScreenshotDirFlag = &cli.StringFlag{
		Name:    "screenshot-dir",
		EnvVars: envVars("SCREENSHOT_DIR"),
		Usage:   "Directory screenshots are written to",
	}
	MetricsFlag = &cli.BoolFlag{
		Name:    "metrics",
		EnvVars: envVars("METRICS"),
		Usage:   "Serve Prometheus metrics on /metrics",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		EnvVars: envVars("LOG_LEVEL"),
		Usage:   "Diagnostic log level (debug, info, warn, error)",
	}
)

var serverFlags = []cli.Flag{
	ConfigFlag,
	HostFlag,
	PortFlag,
	DevFlag,
	XMLFlag,
	XMLFileFlag,
	ScreenshotDirFlag,
	MetricsFlag,
	LogLevelFlag,
}

// loadConfig reads the config file and applies any flag or environment
// overrides on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(ConfigFlag.Name), !c.IsSet(ConfigFlag.Name))
	if err != nil {
		return nil, err
	}

	if c.IsSet(HostFlag.Name) {
		cfg.Server.Host = c.String(HostFlag.Name)
	}
	if c.IsSet(PortFlag.Name) {
		cfg.Server.Port = c.Int(PortFlag.Name)
	}
	if c.IsSet(DevFlag.Name) {
		cfg.Run.Dev = c.Bool(DevFlag.Name)
	}
	if c.IsSet(XMLFlag.Name) {
		cfg.Run.XML = c.Bool(XMLFlag.Name)
	}
	if c.IsSet(XMLFileFlag.Name) {
		cfg.Run.XMLFile = c.String(XMLFileFlag.Name)
	}
	if c.IsSet(ScreenshotDirFlag.Name) {
		cfg.Screenshots.Dir = c.String(ScreenshotDirFlag.Name)
	}
	if c.IsSet(MetricsFlag.Name) {
		cfg.Metrics.Enabled = c.Bool(MetricsFlag.Name)
	}
	if c.IsSet(LogLevelFlag.Name) {
		cfg.LogLevel = c.String(LogLevelFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
