package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func NewConfigCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the config file and environment
overrides are applied. The broker password is redacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.Config().Redacted()
			opts := root.OutputOptions()

			if opts.Format != OutputTable {
				return PrintOutput(cfg, opts)
			}
			if opts.Quiet {
				return nil
			}
			if err := toml.NewEncoder(opts.Writer).Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return nil
		},
	}

	return cmd
}
