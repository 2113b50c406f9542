package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/maestro/db"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the candidate database",
	Long: sym.DB + ` db — Manage the candidate database

Examples:
  maestro db migrate              # Apply pending migrations
  maestro db runs --limit 10      # Show recent scheduling runs`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := databasePath(cfg)
		conn, err := db.Open(path, logger.Logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		pending, err := db.Pending(conn)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Printf("%s Database at %s is up to date\n", sym.DB, path)
			return nil
		}
		if err := db.Migrate(conn, logger.Logger); err != nil {
			return err
		}
		for _, file := range pending {
			fmt.Printf("%s applied %s\n", sym.DB, file)
		}
		return nil
	},
}

var dbRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent scheduling runs",
	RunE:  runDbRuns,
}

var runsLimitFlag int

func init() {
	dbRunsCmd.Flags().IntVar(&runsLimitFlag, "limit", 20, "Number of runs to show")
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbRunsCmd)
}

func runDbRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	runs, err := scheduler.NewRunLog(conn).List(cmd.Context(), runsLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		pterm.Info.Println("No scheduling runs recorded")
		return nil
	}

	data := pterm.TableData{{"Run", "Window", "Lines", "Output", "Created"}}
	for _, r := range runs {
		out := ""
		if r.OutputPath != nil {
			out = *r.OutputPath
		}
		data = append(data, []string{
			r.ID,
			r.WindowStart.Format("2006-01-02 15:04") + " to " + r.WindowEnd.Format("15:04"),
			strconv.Itoa(r.LineCount),
			out,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
