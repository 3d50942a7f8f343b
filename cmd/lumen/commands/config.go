package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lumenweave/lumen/config"
	"github.com/lumenweave/lumen/errors"
)

// ConfigCmd groups configuration inspection commands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
	Long: `Display and validate LUMEN configuration.

Configuration sources (in order of precedence):
1. Environment variables (LUMEN_* prefix)
2. Project config (./lumen.toml, searched upward)
3. User config (~/.lumen/lumen.toml)
4. System config (/etc/lumen/config.toml)
5. Default values

Examples:
  lumen config show                     # Show current configuration
  lumen config show --format json      # Show configuration as JSON
  lumen config get network.gateway_url # Get a specific value
  lumen config validate                # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current LUMEN configuration merged from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g. network.gateway_url, resolver.max_depth)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all configuration keys",
	RunE:  runConfigKeys,
}

func init() {
	configShowCmd.Flags().String("format", "toml", "Output format: toml, json, or yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configKeysCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := config.GetViper().AllSettings()
	format, _ := cmd.Flags().GetString("format")

	var out []byte
	var err error
	switch format {
	case "toml":
		out, err = toml.Marshal(settings)
	case "json":
		out, err = json.MarshalIndent(settings, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(settings)
	default:
		return errors.Newf("unknown format %q (expected toml, json, or yaml)", format)
	}
	if err != nil {
		return errors.Wrapf(err, "marshal config as %s", format)
	}

	fmt.Println(string(out))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := config.GetViper()
	if !v.IsSet(key) {
		return errors.Newf("unknown configuration key %q", key)
	}
	fmt.Println(v.Get(key))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println("configuration ok")
	return nil
}

func runConfigKeys(cmd *cobra.Command, args []string) error {
	keys := config.GetViper().AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
