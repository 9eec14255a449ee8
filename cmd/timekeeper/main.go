package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/andy/timekeeper/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The app is created lazily by the root command so --config, --user and
	// --env-file are honored and help never touches the database
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
