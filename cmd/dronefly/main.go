// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// dronefly is a Matrix bot that keeps reaction-driven tallies of who
// has observed a taxon on iNaturalist, and where.
//
// Usage:
//
//	dronefly login --user NAME [--config FILE]
//	dronefly run [--config FILE]
//
// Without --config, the configuration file is read from the path in
// DRONEFLY_CONFIG. `login` exchanges a password for an access token
// and saves it to matrix.session_file; `run` starts the bot with that
// session.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/dfloer/dronefly/lib/config"
	"github.com/dfloer/dronefly/lib/process"
	"github.com/dfloer/dronefly/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	// Handle --version before subcommand dispatch so it works alone.
	if len(args) > 0 && args[0] == "--version" {
		fmt.Println(version.Info())
		return nil
	}
	if len(args) == 0 {
		printUsage(os.Stderr)
		return errors.New("no command given")
	}

	switch args[0] {
	case "run":
		return runBot(args[1:])
	case "login":
		return runLogin(args[1:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `dronefly tallies iNaturalist observers on Matrix.

Usage:
  dronefly login --user NAME [--config FILE]
  dronefly run [--config FILE]
  dronefly --version

The configuration file defaults to $%s.
`, config.EnvVar)
}

// parseFlags parses args into flagSet, turning -h into a nil error
// with done set.
func parseFlags(flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	flagSet.SetOutput(os.Stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	return false, nil
}

// loadConfig reads path, or DRONEFLY_CONFIG when path is empty, and
// validates the result.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
