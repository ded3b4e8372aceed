// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/JoseSK999/floresta/log"
)

const (
	defaultConfigFilename  = "florestad.conf"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogFilename     = "florestad.log"
	defaultMaxSigCacheSize = 100000
)

var (
	defaultHomeDir    = appDataDir("florestad")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, "logs")
)

// config defines the configuration options for florestad, populated first
// from defaults, then overridden by an INI config file, then by command
// line flags, matching the precedence the dcrd/btcd family of daemons use.
type config struct {
	HomeDir         string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile      string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir         string `short:"b" long:"datadir" description:"Directory to store chain data"`
	LogDir          string `long:"logdir" description:"Directory to log output"`
	DebugLevel      string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- Alternatively, level specifications may be passed as <subsystem>=<level>,<subsystem2>=<level2>,... to set the log level for individual subsystems -- Use: show to list available subsystems"`
	MaxSigCacheSize uint   `long:"sigcachemaxsize" description:"The maximum number of entries in the signature verification cache"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	RegTest bool `long:"regtest" description:"Use the regression test network"`

	AssumeValid string `long:"assumevalid" description:"Hex block hash below which script checks are skipped (empty disables assume-valid mode)"`

	NoScriptVerify bool `long:"noscriptverify" description:"Structural-only validation: skip script execution entirely (no ScriptVerifier is wired in)"`
}

// defaultConfig returns a config populated with every option's default
// value, before the INI file or command line are consulted.
func defaultConfig() config {
	return config{
		HomeDir:         defaultHomeDir,
		ConfigFile:      defaultConfigFile,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		MaxSigCacheSize: defaultMaxSigCacheSize,
	}
}

// loadConfig reads command line flags, initializes an INI-file pre-pass
// over a default (or -C override) config file, then re-parses the command
// line over the result, so explicit flags always win over the file, and
// the file always wins over built-in defaults.
func loadConfig() (*config, []string, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	_, err := preParser.Parse()
	if err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if preCfg.TestNet && preCfg.RegTest {
		return nil, nil, fmt.Errorf("the testnet and regtest flags cannot be used together")
	}

	cfg := preCfg
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		parser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	if cfg.DebugLevel == "show" {
		fmt.Printf("Supported subsystems %v\n", log.SubsystemTags())
		os.Exit(0)
	}

	if cfg.DebugLevel != "" {
		if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
			return nil, nil, err
		}
	}

	return &cfg, remainingArgs, nil
}

// parseAndSetDebugLevels applies debugLevel, either a single level applied
// to every subsystem, or a comma-separated list of subsystem=level pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, "=") {
		log.SetLogLevels(debugLevel)
		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("malformed debug level specification %q", pair)
		}
		log.SetLogLevel(fields[0], fields[1])
	}
	return nil
}

// appDataDir returns the default application data directory for the
// current operating system, under the user's home directory.
func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}
