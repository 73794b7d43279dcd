package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/archivekit/webarchiver/internal/build"
)

/*
archiverd is the operator entrypoint for the archiving system: a daemon
that runs the queue-driven worker pool and cron scheduler (serve), plus
the site/crawl management commands operators use since there is no HTTP
API surface in front of this process. Everything it wires — store,
jobprocessor, cronscheduler, crawlengine — already exists as library
packages; this binary's only job is construction and lifecycle.
*/

var logger arbor.ILogger

var rootCmd = &cobra.Command{
	Use:   "archiverd",
	Short: "Web archiver daemon and operator CLI",
	Long: `archiverd runs the crawl queue workers and schedule promoter for the
web archiving system, and doubles as the operator CLI for managing the
sites it archives.`,
	Version: build.FullVersion(),
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	logger = arbor.NewLogger()
	rootCmd.SetVersionTemplate("archiverd {{.Version}}\n")
}

func main() {
	Execute()
}
