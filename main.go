package main

import (
	"fmt"
	"os"
	"time"

	"github.com/quicktest-hq/quicktest/cmd"
	"github.com/quicktest-hq/quicktest/internal/buildinfo"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/errors"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=..."
var (
	version   string
	buildDate string
	commit    string
)

func main() {
	info := buildinfo.NewContext(version, buildDate, commit)
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings, info)
	err := rootCmd.Execute()
	errors.FlushSentry(2 * time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
