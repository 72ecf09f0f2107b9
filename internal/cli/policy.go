package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPolicyCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective rules policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.rules()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(r.Policy()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
