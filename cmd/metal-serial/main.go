package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/metal-test/metal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exit *cli.ExitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
