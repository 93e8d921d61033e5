// Package app provides the entry point for the regis command-line
// application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jnury/regis/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "regis",
	DisableAutoGenTag: true,
	Short:             "Regis is a desktop-friendly client for Boundary-protected infrastructure",
	Long: `Regis authenticates against HashiCorp Boundary servers using browser-based
OIDC, discovers the targets your session can reach, and manages proxied
connections to them, launching your remote desktop client when a target
speaks RDP.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Re-initialize so --debug takes effect after flag parsing.
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the regis CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServersCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newConnectionsCmd())
	rootCmd.AddCommand(newClientsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
