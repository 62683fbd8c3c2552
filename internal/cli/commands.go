package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
)

// PolicyTable is the allowance table keyed by tier, then gender.
type PolicyTable map[quota.Tier]map[quota.Gender]quota.FeatureAccess

func BuildPolicyTable() PolicyTable {
	table := make(PolicyTable)
	for _, tier := range quota.Tiers() {
		table[tier] = make(map[quota.Gender]quota.FeatureAccess)
		for _, g := range quota.Genders() {
			table[tier][g] = quota.GetFeatureAccess(g, tier)
		}
	}
	return table
}

func newPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the feature access table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(BuildPolicyTable()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newSweepCmd(cfg *config.Config, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Prune expired content from every stored session once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, release, err := open(cfg)
			if err != nil {
				return err
			}
			defer release()

			report, err := session.NewManager(repo, cfg.SessionOptions()).SweepAll(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "messages=%d confessions=%d threads=%d chats=%d crushes=%d reveals=%d\n",
				report.Messages, report.Confessions, report.Threads, report.Chats, report.Crushes, report.Reveals)
			return err
		},
	}
}

func newMigrateCmd(cfg *config.Config, open Opener) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite every stored snapshot at the current format version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, release, err := open(cfg)
			if err != nil {
				return err
			}
			defer release()

			n, err := MigrateAll(cmd.Context(), cmd.OutOrStdout(), repo, dryRun)
			fmt.Fprintf(cmd.OutOrStdout(), "%d snapshot(s) upgraded\n", n)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

// MigrateAll decodes and re-encodes every snapshot, saving the ones whose
// bytes changed. Unreadable snapshots are reported and skipped.
func MigrateAll(ctx context.Context, w io.Writer, repo storage.Repository, dryRun bool) (int, error) {
	owners, err := repo.Owners(ctx)
	if err != nil {
		return 0, err
	}

	var (
		upgraded int
		errs     []error
	)
	for _, id := range owners {
		raw, err := repo.Load(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		st, err := session.Decode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if st.OwnerID == "" {
			st.OwnerID = id
		}
		next, err := session.Encode(st)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if bytes.Equal(raw, next) {
			continue
		}
		upgraded++
		if dryRun {
			fmt.Fprintf(w, "would upgrade %s\n", id)
			continue
		}
		if err := repo.Save(ctx, id, next); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return upgraded, errors.Join(errs...)
}
