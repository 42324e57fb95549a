package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imagejobs/cmd/lightx/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lightx:", err)
		stop()
		os.Exit(1)
	}
}
