package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the feature schema of the configured dataset as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, s, err := loadDataset(a.cfg.Dataset)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
