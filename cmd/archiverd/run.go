package main

import (
	cli "github.com/archivekit/webarchiver/internal/cli"
)

func init() {
	rootCmd.AddCommand(cli.Command())
}
