// Package cli is the eva command tree.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

func Execute() error {
	return newRootCmd().Execute()
}

// ExecuteArgs runs the command tree with explicit arguments.
func ExecuteArgs(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "eva",
		Short:         "Talk your way out of E.V.A.'s apartment",
		Long:          "eva is a terminal escape room. An AI companion has locked you in; convince her to open the door, or find the key she hid.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./eva.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	load := func() (*app, error) {
		return wireApp(v, configFile)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newPlayCmd(v, load),
		newLogsCmd(load),
		newPolicyCmd(load),
		newSavesCmd(load),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(Version + "\n"))
			return err
		},
	}
}
