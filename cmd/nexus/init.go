package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/nexus/internal/config"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// nexusMCPEntry is the MCP server configuration for the nexus binary.
var nexusMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "nexus",
  "args": ["serve"]
}`)

// starterConfig is written as nexus.yml by init.
var starterConfig = config.ProjectConfig{
	Exclude: []string{"**/node_modules/**", "**/vendor/**", "**/*.min.js"},
	Log:     config.LogConfig{Level: "info"},
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter nexus.yml and register the MCP server in .mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and entries")
	return cmd
}

// runInit installs nexus.yml and the MCP configuration into the target
// project directory.
func runInit(out io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	// --- Write nexus.yml ---

	cfgPath := filepath.Join(abs, "nexus.yml")
	if _, err := os.Stat(cfgPath); err == nil && !force {
		fmt.Fprintf(out, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(abs, cfgPath))
	} else {
		data, err := yaml.Marshal(starterConfig)
		if err != nil {
			return fmt.Errorf("marshaling nexus.yml: %w", err)
		}
		if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		fmt.Fprintf(out, "  created %s\n", dotRelative(abs, cfgPath))
	}

	// --- Create/merge .mcp.json ---

	if err := mergeMCPConfig(out, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nSetup complete. Run 'nexus analyze' to build the graph.")
	return nil
}

// mergeMCPConfig creates or merges the nexus entry into .mcp.json, keeping
// other servers.
func mergeMCPConfig(out io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["nexus"]; exists && !force {
		fmt.Fprintf(out, "  skipped .mcp.json nexus entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["nexus"] = nexusMCPEntry

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(out, "  %s .mcp.json with nexus MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
