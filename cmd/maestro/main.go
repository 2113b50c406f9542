package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/maestro/cmd/maestro/commands"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "maestro - telescope candidate database and scheduler",
	Long: `maestro - telescope candidate database and scheduler.

Keeps the candidate database, processes edit jobs from the observatory
control software, and turns active candidates into a night's schedule.

Available commands:
  dbops       - Run the candidate job processor (stdin/stdout control channel)
  schedule    - Build a schedule for the coming night
  sidereal    - Show local sidereal time and tonight's window
  candidates  - Inspect and edit candidates
  modules     - Manage candidate type modules
  am          - Manage maestro configuration ("I am")
  db          - Manage the candidate database

Examples:
  maestro am show             # Show current configuration
  maestro dbops               # Run the job processor
  maestro schedule            # Build tonight's schedule
  maestro modules list        # Show candidate types and activation`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Config file (default: merged /etc/maestro, ~/.maestro and ./am.toml)")
	rootCmd.PersistentFlags().Bool("json", false, "JSON log and version output")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.DbOpsCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.SiderealCmd)
	rootCmd.AddCommand(commands.CandidatesCmd)
	rootCmd.AddCommand(commands.ModulesCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
