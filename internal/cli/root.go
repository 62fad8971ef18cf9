package cli

import (
	"github.com/spf13/cobra"

	"github.com/yanniedog/blueberry/internal/globals"
)

var (
	verbose      bool
	noColor      bool
	settingsPath string
	envFilePath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blueberry",
	Short: "Bluetooth device scanner",
	Long: `A terminal Bluetooth scanner that keeps a running record of every device it has seen.

Each cycle discovers nearby devices, resolves their manufacturer, merges the
signal readings into a persisted table and prints it sorted and colorized by
signal strength.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp()
	},
	// Default behavior: run the discovery loop
	RunE: runScan,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Path to settings.json (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&envFilePath, "env-file", "", "Path to a dotenv file with BLUEBERRY_* overrides")

	addScanFlags(rootCmd)
}

// initializeApp sets up logging and loads settings for every command
func initializeApp() error {
	return globals.Initialize(globals.Options{
		Verbose:      verbose,
		NoColor:      noColor,
		SettingsPath: settingsPath,
		EnvFilePath:  envFilePath,
	})
}
