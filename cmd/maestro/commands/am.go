package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage maestro configuration",
	Long: sym.AM + ` am — Manage maestro configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (MAESTRO_* prefix, e.g. MAESTRO_DATABASE_PATH)
2. Project config (./am.toml, searching up directories)
3. User config (~/.maestro/am.toml)
4. System config (/etc/maestro/am.toml)
5. Default values

Examples:
  maestro am show                          # Show current configuration
  maestro am show --format json            # Show configuration in JSON format
  maestro am get observatory.latitude      # Get specific config value
  maestro am set scheduler.nightly_cron "0 18 * * *"
  maestro am validate                      # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, dbops.default_retries)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Write one dotted key into the config file. A .back1 copy of the previous
file is kept. Values that parse as booleans or numbers are stored as such.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Printf("# maestro configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Printf("# maestro configuration\n%s", string(data))

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q", key)
	}
	fmt.Println(v.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := writableConfig()
	if err := am.SetValue(path, args[0], parseValue(args[1])); err != nil {
		return err
	}
	// Reject the edit early if it leaves the file invalid; the backup is intact.
	if _, err := am.LoadFromFile(path); err != nil {
		return errors.WithHint(err, "restore "+path+".back1 to undo")
	}
	fmt.Printf("%s %s = %s (%s)\n", sym.AM, args[0], args[1], path)
	return nil
}

// parseValue stores "true", "3" and "0.5" as TOML bool, int and float.
func parseValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Println("✓ Configuration is valid")
	return nil
}
