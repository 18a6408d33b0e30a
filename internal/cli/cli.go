// Package cli implements the vulnprobe command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raysh454/vulnprobe/internal/app"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/report"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/raysh454/vulnprobe/internal/utils"
)

// Version is stamped into the usage line.
const Version = "0.1"

// ErrUsage marks a command line the CLI could not act on.
var ErrUsage = errors.New("usage error")

type rootOptions struct {
	configPath  string
	reportPath  string
	dbPath      string
	payloadFile string
	logLevel    string
	workers     int
}

// NewRootCommand builds the command tree. out receives the console report and
// errOut receives log lines.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vulnprobe <target> [depth] [max_pages]",
		Short: "Heuristic SQL injection, XSS and security header probe",
		Long: `vulnprobe crawls a target site, probes query parameters and forms with
SQL injection and XSS payloads, audits security headers, and writes a JSON report.`,
		Version:       Version,
		Args:          cobra.RangeArgs(1, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts, args, out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.payloadFile, "payloads", "", "YAML payload catalog (default: built-in)")
	pf.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent page workers (0 = config default)")

	f := cmd.Flags()
	f.StringVarP(&opts.reportPath, "output", "o", "", "Report file (default: report.json)")
	f.StringVar(&opts.dbPath, "db", "", "Also save the report to this SQLite database")

	cmd.AddCommand(newServeCommand(opts, errOut))
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := NewRootCommand(out, errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, scanner.ErrInvalidTarget) {
			fmt.Fprintln(out, "[ERROR] Invalid URL. Example: http://example.com/page?param=value")
		} else {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// loadConfig layers the YAML file, env overrides and command-line flags.
func loadConfig(opts *rootOptions) (*app.Config, error) {
	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.payloadFile != "" {
		cfg.PayloadFile = opts.payloadFile
	}
	if opts.workers > 0 {
		cfg.Scanner.Workers = opts.workers
	}
	if opts.reportPath != "" {
		cfg.ReportPath = opts.reportPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *app.Config, w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(w, "vulnprobe", level), nil
}

// parseCount reads an optional positional integer; anything unparsable or
// non-positive selects fallback.
func parseCount(args []string, i, fallback int) int {
	if len(args) <= i {
		return fallback
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func runScan(ctx context.Context, opts *rootOptions, args []string, out, errOut io.Writer) error {
	target := args[0]
	if !utils.ValidateURL(target) {
		return fmt.Errorf("%w: %q", scanner.ErrInvalidTarget, target)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	// One-shot scans only persist to SQLite when asked.
	cfg.DBPath = opts.dbPath

	logger, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}

	req := model.ScanRequest{
		Target:   target,
		Depth:    parseCount(args, 1, 0),
		MaxPages: parseCount(args, 2, 0),
	}

	a, err := app.NewApplication(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown", logging.Field{Key: "error", Value: err})
		}
	}()

	res, err := a.Scan(ctx, req, func(ev scanner.Event) {
		if ev.Type == scanner.EventCrawlDone {
			fmt.Fprintf(out, "[*] Crawling enabled (depth=%d, max_pages=%d). Discovered %d page(s).\n",
				depthOrDefault(req.Depth, cfg.Scanner.MaxDepth), pagesOrDefault(req.MaxPages, cfg.Scanner.MaxPages), ev.Count)
		}
	})
	if err != nil {
		return err
	}

	report.PrintSummary(out, res.Findings)
	path, err := report.WriteJSON(cfg.ReportPath, target, res.Findings)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[+] Report saved to %s\n", path)

	if a.Registry != nil {
		id := uuid.New().String()[:app.TaskIDLength]
		if err := a.Registry.SaveReport(ctx, id, model.NewReport(target, res.Findings), len(res.Pages)); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Fprintf(out, "[+] Report stored in %s as %s\n", cfg.DBPath, id)
	}
	return nil
}

func depthOrDefault(requested, configured int) int {
	if requested > 0 {
		return requested
	}
	if configured > 0 {
		return configured
	}
	return 2
}

func pagesOrDefault(requested, configured int) int {
	if requested > 0 {
		return requested
	}
	if configured > 0 {
		return configured
	}
	return 50
}
