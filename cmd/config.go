package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"flacdesk/infrastructure/config"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput io.Writer = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage plugin scopes",
	Long: `Manage the shell programs, bridge origins and http scope in the configuration file.

Examples:
  flacdesk config list programs
  flacdesk config add program --name probe --cmd /usr/bin/ffprobe --allow-args
  flacdesk config add origin http://localhost:1420
  flacdesk config add scope "https://cdn.example.com/*"
  flacdesk config remove origin http://localhost:1420`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configUpdateCmd)
}

// --- ADD command ---

var (
	addName      string
	addCmdPath   string
	addArgs      []string
	addAllowArgs bool
)

var configAddCmd = &cobra.Command{
	Use:   "add [program|origin|scope] [value]",
	Short: "Add a new config entry",
	Long: `Add a shell program, an allowed bridge origin or an http scope pattern.

Examples:
  flacdesk config add program --name probe --cmd /usr/bin/ffprobe --arg -hide_banner --allow-args
  flacdesk config add origin http://localhost:1420
  flacdesk config add scope "https://cdn.example.com/*"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigAdd,
}

func init() {
	configAddCmd.Flags().StringVar(&addName, "name", "", "Name the front-end uses (program only)")
	configAddCmd.Flags().StringVar(&addCmdPath, "cmd", "", "Program to run (program only)")
	configAddCmd.Flags().StringSliceVar(&addArgs, "arg", nil, "Fixed argument (program only, repeatable)")
	configAddCmd.Flags().BoolVar(&addAllowArgs, "allow-args", false, "Let the front-end pass extra arguments (program only)")
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	value := ""
	if len(args) > 1 {
		value = args[1]
	}

	entry := config.ShellCommandConfig{Name: addName, Cmd: addCmdPath, Args: addArgs, AllowArgs: addAllowArgs}
	return RunConfigAddWithDependencies(cfg, cfgFile, args[0], value, entry, DefaultOutput)
}

// RunConfigAddWithDependencies runs the add command with injected dependencies
func RunConfigAddWithDependencies(cfg *config.Config, configPath, entityType, value string, program config.ShellCommandConfig, out io.Writer) error {
	mgr := config.NewConfigManager(cfg, configPath)

	switch entityType {
	case "program":
		if err := mgr.AddProgram(program); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added program %q: %s\n", program.Name, strings.Join(append([]string{program.Cmd}, program.Args...), " "))

	case "origin":
		if value == "" {
			return fmt.Errorf("origin is required")
		}
		if err := mgr.AddOrigin(value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added origin %s\n", value)

	case "scope":
		if value == "" {
			return fmt.Errorf("scope pattern is required")
		}
		if err := mgr.AddPattern(value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added scope pattern %s\n", value)

	default:
		return fmt.Errorf("unknown entity type %q. Use program, origin, or scope", entityType)
	}

	return nil
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list [programs|origins|scopes]",
	Short: "List config entries",
	Long: `List the shell programs, allowed origins or http scope patterns.

Examples:
  flacdesk config list programs
  flacdesk config list origins
  flacdesk config list scopes`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigList,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	return RunConfigListWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath, entityType string, out io.Writer) error {
	mgr := config.NewConfigManager(cfg, configPath)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	switch entityType {
	case "programs":
		programs := mgr.ListPrograms()
		if len(programs) == 0 {
			fmt.Fprintln(out, "No programs configured.")
			return nil
		}
		fmt.Fprintln(w, "NAME\tCOMMAND\tEXTRA ARGS")
		for _, p := range programs {
			extra := "no"
			if p.AllowArgs {
				extra = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, strings.Join(append([]string{p.Cmd}, p.Args...), " "), extra)
		}

	case "origins":
		origins := mgr.ListOrigins()
		if len(origins) == 0 {
			fmt.Fprintln(out, "No origins configured. Only loopback origins may connect.")
			return nil
		}
		fmt.Fprintln(w, "ORIGIN")
		for _, o := range origins {
			fmt.Fprintln(w, o)
		}

	case "scopes":
		patterns := mgr.ListPatterns()
		if len(patterns) == 0 {
			fmt.Fprintln(out, "No scope patterns configured. The http plugin rejects every request.")
			return nil
		}
		fmt.Fprintln(w, "PATTERN")
		for _, p := range patterns {
			fmt.Fprintln(w, p)
		}

	default:
		return fmt.Errorf("unknown entity type %q. Use programs, origins, or scopes", entityType)
	}

	return w.Flush()
}

// --- REMOVE command ---

var configRemoveCmd = &cobra.Command{
	Use:   "remove [program|origin|scope] <value>",
	Short: "Remove a config entry",
	Long: `Remove a shell program by name, an allowed origin or an http scope pattern.

Examples:
  flacdesk config remove program probe
  flacdesk config remove origin http://localhost:1420
  flacdesk config remove scope "https://cdn.example.com/*"`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigRemove,
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	return RunConfigRemoveWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
}

// RunConfigRemoveWithDependencies runs the remove command with injected dependencies
func RunConfigRemoveWithDependencies(cfg *config.Config, configPath, entityType, value string, out io.Writer) error {
	mgr := config.NewConfigManager(cfg, configPath)

	switch entityType {
	case "program":
		if err := mgr.RemoveProgram(value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed program %q\n", value)

	case "origin":
		if err := mgr.RemoveOrigin(value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed origin %s\n", value)

	case "scope":
		if err := mgr.RemovePattern(value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed scope pattern %s\n", value)

	default:
		return fmt.Errorf("unknown entity type %q. Use program, origin, or scope", entityType)
	}

	return nil
}

// --- UPDATE command ---

var (
	updateCmdPath   string
	updateArgs      []string
	updateAllowArgs bool
)

var configUpdateCmd = &cobra.Command{
	Use:   "update program <name>",
	Short: "Update a shell program",
	Long: `Update the command, fixed arguments or argument policy of a shell program.

Examples:
  flacdesk config update program probe --cmd /opt/ffmpeg/bin/ffprobe
  flacdesk config update program probe --allow-args=false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigUpdate,
}

func init() {
	configUpdateCmd.Flags().StringVar(&updateCmdPath, "cmd", "", "New program path")
	configUpdateCmd.Flags().StringSliceVar(&updateArgs, "arg", nil, "Replace the fixed arguments (repeatable)")
	configUpdateCmd.Flags().BoolVar(&updateAllowArgs, "allow-args", false, "Let the front-end pass extra arguments")
}

func runConfigUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	var allowArgs *bool
	if cmd.Flags().Changed("allow-args") {
		allowArgs = &updateAllowArgs
	}
	var fixed []string
	if cmd.Flags().Changed("arg") {
		fixed = append([]string{}, updateArgs...)
	}

	if updateCmdPath == "" && fixed == nil && allowArgs == nil {
		return fmt.Errorf("at least one of --cmd, --arg or --allow-args is required")
	}

	return RunConfigUpdateWithDependencies(cfg, cfgFile, args[0], args[1], updateCmdPath, fixed, allowArgs, DefaultOutput)
}

// RunConfigUpdateWithDependencies runs the update command with injected dependencies
func RunConfigUpdateWithDependencies(cfg *config.Config, configPath, entityType, name, cmdPath string, args []string, allowArgs *bool, out io.Writer) error {
	if entityType != "program" {
		return fmt.Errorf("unknown entity type %q. Only programs can be updated", entityType)
	}

	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.UpdateProgram(name, cmdPath, args, allowArgs); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated program %q\n", name)
	return nil
}
