package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsOwner string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics for an owner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := svc.Stats(ctx, statsOwner)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Documents:       %d\n", stats.Documents)
		fmt.Fprintf(out, "Total chunks:    %d\n", stats.TotalChunks)
		fmt.Fprintf(out, "Document chunks: %d\n", stats.DocumentChunks)
		fmt.Fprintf(out, "Message chunks:  %d\n", stats.MessageChunks)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsOwner, "owner", "", "owner identity (default: guest)")
	rootCmd.AddCommand(statsCmd)
}
