package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jguan/hostmon/pkg/infra/metrics"
)

func NewSampleCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Take one snapshot and print it",
		Long: `Sample the host once and print the snapshot without publishing it.
Sampling takes about one second while CPU load is measured.`,
		Example: `  hostmon sample
  hostmon sample -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			collector := root.collector
			if collector == nil {
				collector = metrics.NewSampler(metrics.WithUserName(root.Config().Sampler.UserName))
			}

			snap, err := collector.Sample(cmd.Context())
			if err != nil {
				return fmt.Errorf("sample host: %w", err)
			}

			return PrintOutput(snap, root.OutputOptions())
		},
	}

	return cmd
}
