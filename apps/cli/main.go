package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
