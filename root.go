package main

import (
	"github.com/spf13/cobra"

	"github.com/camden-git/photoqueue/config"
)

func newRootCommand() *cobra.Command {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:           "photoqueue",
		Short:         "Photo review queue: ingest, score, review, publish and upload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(&cfg))
	rootCmd.AddCommand(newIngestCommand(&cfg))
	rootCmd.AddCommand(newScoreCommand(&cfg))
	rootCmd.AddCommand(newUploadCommand(&cfg))
	rootCmd.AddCommand(newCleanupCommand(&cfg))
	rootCmd.AddCommand(newQueueCommand(&cfg))

	return rootCmd
}
