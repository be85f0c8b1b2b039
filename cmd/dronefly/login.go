// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dfloer/dronefly/messaging"
)

const loginTimeout = 30 * time.Second

func runLogin(args []string) error {
	var configPath, user, passwordFile string

	flagSet := pflag.NewFlagSet("dronefly login", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default $DRONEFLY_CONFIG)")
	flagSet.StringVar(&user, "user", "", "Matrix username or user ID of the bot account")
	flagSet.StringVar(&passwordFile, "password-file", "", "read the password from this file instead of prompting")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if user == "" {
		return errors.New("--user is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Matrix.Homeserver,
		Logger:        newLogger(cfg.Logging),
	})
	if err != nil {
		return err
	}
	session, err := client.Login(ctx, user, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// Verify the token before saving it.
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("session verification failed: %w", err)
	}

	if err := saveSession(cfg.Matrix.SessionFile, &savedSession{
		UserID:      userID.String(),
		DeviceID:    session.DeviceID(),
		AccessToken: session.AccessToken(),
		Homeserver:  cfg.Matrix.Homeserver,
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s\n", userID)
	fmt.Fprintf(os.Stderr, "Session saved to %s\n", cfg.Matrix.SessionFile)
	return nil
}

// readPassword reads from passwordFile, or prompts on the terminal
// with echo disabled when passwordFile is empty or "-".
func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		file, err := os.Open(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		defer file.Close()
		return readPasswordFrom(file, passwordFile)
	}

	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(password) == 0 {
		return "", errors.New("empty password")
	}
	return string(password), nil
}

// readPasswordFrom returns the first line of reader without its line
// ending.
func readPasswordFrom(reader io.Reader, name string) (string, error) {
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("%s is empty", name)
	}
	return password, nil
}
