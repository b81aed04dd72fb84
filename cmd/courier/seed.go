package main

import (
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Backfill the vector index from existing message history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			msgs, err := a.store.ListAllMessages(ctx, limit)
			if err != nil {
				return err
			}
			if err := a.indexer.IndexHistory(ctx, msgs); err != nil {
				return err
			}
			a.logger.Info("indexed %d messages", len(msgs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "index at most N newest messages (0 = all)")
	return cmd
}
