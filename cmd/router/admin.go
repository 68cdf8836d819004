package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mir00r/edge-router/internal/config"
	"github.com/mir00r/edge-router/internal/domain"
	"github.com/mir00r/edge-router/internal/handler"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/mir00r/edge-router/internal/weights"
	"github.com/mir00r/edge-router/pkg/logger"
)

const adminTimeout = 10 * time.Second

const adminUsage = `Usage: router -admin <command> [args]
Commands:
  validate-config                          - Validate and print the effective configuration
  get-weight <domain>                      - Show the live routing config of a domain
  set-weight <domain> <weight> [blue] [green] - Write the routing config of a domain
  decide <path> <ip> [cookie]              - Dry-run the routing decision for a request
  issue-token <subject> [ttl]              - Sign an admin API token
`

// runAdminProcess runs a one-off admin command and exits
func runAdminProcess(cfg *config.Config, log *logger.Logger) {
	args := adminArgs(os.Args)
	if len(args) == 0 {
		fmt.Print(adminUsage)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	if err := runAdminCommand(ctx, cfg, log, args, os.Stdout); err != nil {
		fmt.Printf("Command failed: %v\n", err)
		os.Exit(1)
	}
}

// runAdminCommand executes args[0] with the remaining arguments, writing its
// output to out
func runAdminCommand(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string, out io.Writer) error {
	command, rest := args[0], args[1:]

	switch command {
	case "validate-config", "validate":
		return runConfigValidation(cfg, out)
	case "issue-token":
		return runIssueToken(cfg, log, rest, out)
	case "get-weight", "set-weight", "decide":
	default:
		return fmt.Errorf("unknown command: %s\n%s", command, adminUsage)
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "get-weight":
		return runGetWeight(ctx, a, rest, out)
	case "set-weight":
		return runSetWeight(ctx, a, rest, out)
	default:
		return runDecide(ctx, a, rest, out)
	}
}

// runConfigValidation prints the validated configuration with secrets masked
func runConfigValidation(cfg *config.Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dump, err := cfg.Dump()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Configuration validation passed")
	_, err = out.Write(dump)
	return err
}

func runGetWeight(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get-weight <domain>")
	}
	d, err := parseDomain(args[0])
	if err != nil {
		return err
	}

	cfg, lookupErr := a.resolver.Lookup(ctx, d)
	source := "store"
	if lookupErr != nil {
		source = "default (" + lookupErr.Error() + ")"
	}

	fmt.Fprintf(out, "%s: weight=%d blue=%q green=%q\n", d.ConfigKey(), cfg.Weight, cfg.Blue, cfg.Green)
	fmt.Fprintf(out, "source: %s\n", source)
	fmt.Fprintf(out, "active version: %s\n", cfg.ActiveVersion())
	return nil
}

func runSetWeight(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("usage: set-weight <domain> <weight> [blue] [green]")
	}
	d, err := parseDomain(args[0])
	if err != nil {
		return err
	}

	weight, err := strconv.Atoi(args[1])
	if err != nil || weight < 0 || weight > 100 {
		return fmt.Errorf("weight must be an integer between 0 and 100: %s", args[1])
	}

	// version tags default to the ones currently stored
	cfg, _ := a.resolver.Lookup(ctx, d)
	cfg.Weight = weight
	if len(args) > 2 {
		cfg.Blue = args[2]
	}
	if len(args) > 3 {
		cfg.Green = args[3]
	}

	payload, err := weights.FormatRoutingConfig(cfg)
	if err != nil {
		return err
	}
	if err := a.backend.Put(ctx, d.ConfigKey(), payload); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.ConfigKey(), err)
	}

	a.log.AdminLogger().WithFields(map[string]interface{}{
		"action": "set_weight",
		"domain": d.String(),
		"weight": weight,
	}).Info("Updated routing config")

	fmt.Fprintf(out, "%s: %s\n", d.ConfigKey(), payload)
	return nil
}

func runDecide(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: decide <path> <ip> [cookie]")
	}

	headers := domain.Headers{}
	if len(args) == 3 {
		headers.Set("cookie", args[2])
	}

	decision, err := a.pipeline.Decide(ctx, &domain.Request{
		URI:           args[0],
		Headers:       headers,
		ClientAddress: args[1],
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(handler.NewDecisionResponse(decision))
}

func runIssueToken(cfg *config.Config, log *logger.Logger, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: issue-token <subject> [ttl]")
	}

	ttl := time.Hour
	if len(args) == 2 {
		parsed, err := time.ParseDuration(args[1])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid ttl: %s", args[1])
		}
		ttl = parsed
	}

	jwtAuth, err := middleware.NewJWTAuthMiddleware(middleware.JWTAuthConfig{
		Secret: cfg.Admin.JWTSecret,
		Issuer: cfg.Admin.JWTIssuer,
	}, log)
	if err != nil {
		return err
	}

	token, err := jwtAuth.IssueToken(args[0], ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(out, token)
	return nil
}

func parseDomain(value string) (domain.RoutingDomain, error) {
	d, ok := domain.ParseRoutingDomain(value)
	if !ok {
		return d, fmt.Errorf("unknown routing domain %q, expected app, api or subscriptions", value)
	}
	return d, nil
}

// checkIfAdminMode checks if running in admin mode
func checkIfAdminMode() bool {
	for _, arg := range os.Args {
		if arg == "-admin" {
			return true
		}
	}
	return false
}

// adminArgs returns the arguments following the -admin flag
func adminArgs(args []string) []string {
	for i, arg := range args {
		if arg == "-admin" {
			return args[i+1:]
		}
	}
	return nil
}
