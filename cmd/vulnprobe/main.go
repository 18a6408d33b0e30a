// Command vulnprobe scans a target for SQL injection, reflected XSS and
// missing security headers.
// Usage: vulnprobe <target> [depth] [max_pages]
//
//	vulnprobe serve --addr :8080
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/vulnprobe/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
