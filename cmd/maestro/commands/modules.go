package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/sym"
)

// ModulesCmd manages candidate type modules.
var ModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: sym.Plan + " Manage candidate type modules",
	Long: sym.Plan + ` modules — candidate type modules

Each candidate type is a module with an activation flag. Only active types
are scheduled. Activation is stored in the database and mirrored to am.toml.

Examples:
  maestro modules list
  maestro modules deactivate Astrophotography
  maestro modules activate Astrophotography`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered type modules",
	RunE:  runModulesList,
}

var modulesActivateCmd = &cobra.Command{
	Use:   "activate <type>",
	Short: "Include a type in scheduling runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModuleActive(cmd, args[0], true)
	},
}

var modulesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <type>",
	Short: "Exclude a type from scheduling runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModuleActive(cmd, args[0], false)
	},
}

func init() {
	ModulesCmd.AddCommand(modulesListCmd)
	ModulesCmd.AddCommand(modulesActivateCmd)
	ModulesCmd.AddCommand(modulesDeactivateCmd)
}

func runModulesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := buildRegistry(cmd.Context(), cfg, conn, logger.Logger); err != nil {
		return err
	}
	records, err := scheduler.NewModuleStore(conn).List(cmd.Context())
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Type", "Active", "Version", "Author", "Description"}}
	for _, r := range records {
		active := "no"
		if r.Active {
			active = "yes"
		}
		data = append(data, []string{r.TypeName, active, r.Version, r.Author, r.Description})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func setModuleActive(cmd *cobra.Command, typeName string, active bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	registry, err := buildRegistry(cmd.Context(), cfg, conn, logger.Logger)
	if err != nil {
		return err
	}
	if _, ok := registry.Get(typeName); !ok {
		return errors.WithHint(errors.NewNotFoundError("type %s", typeName), "run 'maestro modules list' for registered types")
	}
	if err := scheduler.NewModuleStore(conn).SetActive(cmd.Context(), typeName, active); err != nil {
		return err
	}

	path := writableConfig()
	if err := am.UpdateTypeActive(path, typeName, active); err != nil {
		pterm.Warning.Printf("Database updated but %s was not: %v\n", path, err)
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	pterm.Success.Printf("%s %s\n", verb, typeName)
	return nil
}
