package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"authhandler/internal/app"
	"authhandler/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including a daemon that could
	// not register any handler.
	ExitCodeError = 1
)

var (
	// configPath is the configuration file shared by every command.
	configPath string

	// debug forces debug logging in the daemon.
	debug bool
)

// rootCmd runs the authentication handler daemon.
var rootCmd = &cobra.Command{
	Use:   "authhandler",
	Short: "Handle authentication requests from instant messaging connections",
	Long: `authhandler answers the authentication channels the instant messaging
framework dispatches over the session bus: SASL passwords and tokens, untrusted
TLS certificates, captchas and password protected chat rooms.

Passwords and tokens are kept in an encrypted wallet. Certificate exceptions the
user grants are kept in a trust rules file that the trust subcommands manage.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "authhandler version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(app.NewConfig(debug, configPath))
	if err != nil {
		return err
	}
	return application.Run(cmd.Context())
}

// loadConfig loads the configuration for the maintenance subcommands.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default is $XDG_CONFIG_HOME/authhandler/config.yaml)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newTrustCmd())
	rootCmd.AddCommand(newWalletCmd())
}
