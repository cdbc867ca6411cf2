package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/observability"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or update the settings file shared with the pipeline scripts",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print all settings, or the value of one key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE...",
	Short: "Merge key=value pairs into the settings file",
	Long:  `Existing keys are replaced in place, new keys are appended. Comments and unrelated lines are kept.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConfigSet,
}

var configShowSecrets bool

func init() {
	configGetCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "Print API keys and tokens unmasked")
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// parseAssignments turns KEY=VALUE arguments into an update map
func parseAssignments(args []string) (map[string]string, error) {
	updates := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected KEY=VALUE", arg)
		}
		updates[key] = value
	}
	return updates, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	settings := a.controller.State().Settings
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		value, ok := settings[args[0]]
		if !ok {
			return fmt.Errorf("setting %s is not set", args[0])
		}
		if !configShowSecrets {
			value = observability.MaskValue(args[0], value)
		}
		_, _ = fmt.Fprintln(out, value)
		return nil
	}

	if configShowSecrets {
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, "%s=%s\n", k, settings[k])
		}
		return nil
	}

	a.printer.PrintSettings(settings)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	updates, err := parseAssignments(args)
	if err != nil {
		return err
	}

	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.controller.SaveSettings(updates); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d setting(s) to %s\n", len(updates), a.settings.Path())
	return nil
}
