// Command admin-auth runs the admin session service.
//
//	admin-auth [serve] [-c config.json] [-addr :8080] [-db-driver sqlite] [-db-dsn ...]
//	admin-auth create-admin -username alice -email alice@example.com -name "Alice Admin"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "admin-auth: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(ctx, args)
	case "create-admin":
		return createAdmin(ctx, args, os.Stdin, os.Stdout)
	case "version":
		fmt.Printf("admin-auth %s (%s)\n", version, commit)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}
