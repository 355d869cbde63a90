// Command truckctl runs operator jobs against the configured storage backend.
//
//	truckctl sweep
//	truckctl report --out trucks.xlsx
//	truckctl backfill-hours [--dry-run]
//	truckctl status --owner ID
//	truckctl token --owner ID [--role superadmin] [--ttl 24h]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/evn/grubana/config"
	"github.com/evn/grubana/internal/app"
	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/pkg/logger"
	"github.com/evn/grubana/internal/services/auth"
	"github.com/evn/grubana/internal/services/report"
)

const usage = `usage: truckctl <command> [flags]

commands:
  sweep            take expired sessions offline
  report           write the truck status workbook (--out)
  backfill-hours   give every owner without a schedule the default hours (--dry-run)
  status           print one truck's status (--owner)
  token            mint a JWT for an owner (--owner, --role, --ttl)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	if cmd == "token" {
		return runToken(cfg, args, out)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "sweep":
		return runSweep(ctx, a, out)
	case "report":
		return runReport(ctx, a, args)
	case "backfill-hours":
		return runBackfill(ctx, a, args, out)
	case "status":
		return runStatus(ctx, a, args, out)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func runSweep(ctx context.Context, a *app.App, out io.Writer) error {
	res, err := a.Sweeper.Run(ctx, a.Config.Now())
	if err != nil {
		return err
	}
	return printJSON(out, res)
}

func runReport(ctx context.Context, a *app.App, args []string) error {
	fs := pflag.NewFlagSet("report", pflag.ContinueOnError)
	outPath := fs.StringP("out", "o", "trucks.xlsx", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := a.Config.Now()
	views, err := a.Trucks.All(ctx, now)
	if err != nil {
		return err
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.Write(f, views, now); err != nil {
		return err
	}
	a.Log.Info("✅ report written", zap.String("path", *outPath), zap.Int("trucks", len(views)))
	return nil
}

// runBackfill is the one-time migration for owners created before business hours existed.
func runBackfill(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("backfill-hours", pflag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "list owners without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	owners, err := a.Store.ListOwnersWithoutBusinessHours(ctx)
	if err != nil {
		return err
	}

	updated, failed := 0, 0
	for _, id := range owners {
		if *dryRun {
			fmt.Fprintf(out, "would update %s\n", id)
			continue
		}
		if err := a.Store.SetBusinessHours(ctx, id, models.DefaultBusinessHours()); err != nil {
			failed++
			a.Log.Error("❌ backfill failed", zap.String("owner_id", id), zap.Error(err))
			continue
		}
		updated++
	}
	return printJSON(out, map[string]interface{}{
		"candidates": len(owners),
		"updated":    updated,
		"failed":     failed,
		"dry_run":    *dryRun,
	})
}

func runStatus(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	owner := fs.String("owner", "", "owner id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner == "" {
		return fmt.Errorf("--owner is required")
	}

	view, err := a.Trucks.Status(ctx, *owner, a.Config.Now())
	if err != nil {
		return err
	}
	return printJSON(out, view)
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	owner := fs.String("owner", "", "owner id (user_id claim)")
	role := fs.String("role", auth.RoleOwner, "role claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner == "" {
		return fmt.Errorf("--owner is required")
	}

	tok, err := auth.NewJWTService(cfg.JwtSecret, *ttl).GenerateToken(*owner, *role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
