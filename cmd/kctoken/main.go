package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/acie-dev/kcauth/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
