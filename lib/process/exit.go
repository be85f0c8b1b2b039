// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal writes "dronefly: err" to stderr and exits with code 1. Use it
// in main() for the error returned by run(), where the logger may not
// be initialized.
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "dronefly: %v\n", err)
}
