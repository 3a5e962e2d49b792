// Package main runs the whoami command.
//
// It mounts a session guard against the configured API endpoint and prints
// how the guard settled, exercising the full client pipeline from a shell.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	whoamicmd "github.com/scriptoria/webclient/internal/cmd/whoami"
)

func main() {
	cfg, err := whoamicmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WHOAMI] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := whoamicmd.Run(ctx, cfg); err != nil {
		log.Fatalf("whoami failed: %v", err)
	}
}
