package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}
	cmd.AddCommand(configShowCmd(g), configInitCmd(g))
	return cmd
}

func configShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", filepath.Join(dir, "config.yaml"))
			out.Write(data)

			fmt.Fprintln(out, "\n# credentials")
			for _, name := range []string{"claude", "openai"} {
				if p := cfg.LLM.Providers[name]; p != nil {
					fmt.Fprintf(out, "# %-7s %s\n", name, configured(p.APIKey != ""))
				}
			}
			fmt.Fprintf(out, "# %-7s %s\n", "google", configured(cfg.Speech.GoogleAPIKey != ""))
			return nil
		},
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not set"
}

func configInitCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "First-time setup: directories, default config and API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			fmt.Fprintln(out, "Parlance - First-Time Setup")
			fmt.Fprintln(out, "===========================")
			fmt.Fprintln(out)

			dir, err := g.home()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Creating %s... ", dir)
			if err := config.EnsureDir(dir); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			fmt.Fprintln(out, "✓")

			configPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprint(out, "Creating default configuration... ")
				if err := config.SaveTo(dir, config.DefaultLocalConfig()); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				fmt.Fprintln(out, "✓")
			} else {
				fmt.Fprintln(out, "Configuration already exists ✓")
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Credentials (press Enter to skip)")
			fmt.Fprintln(out, "---------------------------------")
			ask := func(label string) string {
				fmt.Fprintf(out, "%s: ", label)
				line, _ := reader.ReadString('\n')
				return strings.TrimSpace(line)
			}

			secrets := config.SecretsConfig{
				Providers: map[string]config.Secret{},
				Speech:    map[string]config.Secret{},
			}
			if key := ask("Claude API key"); key != "" {
				secrets.Providers["claude"] = config.Secret{APIKey: key}
			}
			if key := ask("OpenAI API key"); key != "" {
				secrets.Providers["openai"] = config.Secret{APIKey: key}
			}
			if key := ask("Google Text-to-Speech API key"); key != "" {
				secrets.Speech["google"] = config.Secret{APIKey: key}
			}
			if len(secrets.Providers)+len(secrets.Speech) > 0 {
				if err := config.SaveSecretsTo(dir, secrets); err != nil {
					fmt.Fprintf(out, "  ⚠ Failed to save: %v\n", err)
				} else {
					fmt.Fprintln(out, "  ✓ Saved to secrets.yaml")
				}
			}

			fmt.Fprintln(out)
			fmt.Fprint(out, "Checking Ollama... ")
			if err := checkOllama("http://localhost:11434"); err != nil {
				fmt.Fprintf(out, "⚠ %v (challenges fall back to the built-in word list)\n", err)
			} else {
				fmt.Fprintln(out, "✓")
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  parlance play              # quiz in the terminal")
			fmt.Fprintln(out, "  parlance start             # run the daemon")
			fmt.Fprintln(out, "  parlance mcp               # serve the quiz to an MCP client")
			return nil
		},
	}
}

func checkOllama(url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
