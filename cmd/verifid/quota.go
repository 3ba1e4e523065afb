// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/verifid/verifid/internal/config"
	"github.com/verifid/verifid/internal/logging"
)

// NewQuotaCmd creates the quota command group. A nil deps uses the defaults.
func NewQuotaCmd(deps *QuotaDeps) *cobra.Command {
	if deps == nil {
		deps = &QuotaDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Manage verification email resend quotas",
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset resend counters of unverified accounts",
		Long: `Reset the resend counter of every unverified account whose current
window started before --before (default: now). This is the manual reset
policy's counterpart to the automatic daily and sliding resets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuotaReset(cmd, deps, time.Now())
		},
	}
	reset.Flags().String("before", "", "only reset windows started before this RFC 3339 time")
	reset.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.AddCommand(reset)

	return cmd
}

func runQuotaReset(cmd *cobra.Command, deps *QuotaDeps, now time.Time) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if cfg.Storage.DSN == "" {
		return oops.Code("CONFIG_INVALID").Errorf("quota reset needs the postgres store (storage.dsn, DATABASE_URL or --database-url)")
	}
	cfg.Storage.Driver = config.StoragePostgres

	before := now
	raw, err := cmd.Flags().GetString("before")
	if err != nil {
		return err
	}
	if raw != "" {
		if before, err = time.Parse(time.RFC3339, raw); err != nil {
			return oops.Code("INVALID_TIME").With("before", raw).Wrap(err)
		}
	}

	logger := logging.Setup("verifid", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, release, err := deps.StoreFactory(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer release()

	n, err := st.ResetResendCounts(ctx, before, now)
	if err != nil {
		return err
	}
	logger.Info("resend counters reset", "count", n, "before", before)
	cmd.Printf("Reset %d resend counter(s)\n", n)
	return nil
}
