package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/spf13/cobra"
)

func daemonAddr(cfg *config.LocalConfig) string {
	host := cfg.Daemon.Bind
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Daemon.Port)
}

func startCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			addr := daemonAddr(cfg)

			if isRunning(addr) {
				fmt.Fprintln(out, "✓ Daemon is already running")
				return nil
			}
			if err := config.EnsureDir(dir); err != nil {
				return fmt.Errorf("setup parlance directory: %w", err)
			}

			bin, err := findDaemonBinary()
			if err != nil {
				return fmt.Errorf("find daemon binary: %w", err)
			}

			proc := exec.Command(bin)
			proc.Dir = dir
			proc.Env = append(os.Environ(), config.EnvHome+"="+dir)
			configureDaemonProcess(proc)

			if err := proc.Start(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			fmt.Fprint(out, "Starting daemon...")
			for i := 0; i < 30; i++ {
				time.Sleep(100 * time.Millisecond)
				if isRunning(addr) {
					fmt.Fprintln(out, " ✓")
					fmt.Fprintf(out, "Daemon running at %s\n", addr)
					return nil
				}
				fmt.Fprint(out, ".")
			}

			fmt.Fprintln(out, " ✗")
			return errors.New("daemon failed to start (check logs with 'parlance logs')")
		},
	}
}

func stopCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			addr := daemonAddr(cfg)

			if !isRunning(addr) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}

			data, err := os.ReadFile(filepath.Join(dir, pidFile))
			if err != nil {
				return fmt.Errorf("read PID file: %w", err)
			}
			pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil {
				return fmt.Errorf("parse PID: %w", err)
			}
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("find process: %w", err)
			}

			fmt.Fprint(out, "Stopping daemon...")
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("send signal: %w", err)
			}

			for i := 0; i < 50; i++ {
				time.Sleep(100 * time.Millisecond)
				if !isRunning(addr) {
					fmt.Fprintln(out, " ✓")
					return nil
				}
				fmt.Fprint(out, ".")
			}

			fmt.Fprintln(out, " ✗")
			return errors.New("daemon did not stop gracefully")
		},
	}
}

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			addr := daemonAddr(cfg)

			if !isRunning(addr) {
				fmt.Fprintln(out, "Status: stopped")
				return nil
			}

			resp, err := http.Get(addr + "/v1/status")
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			defer resp.Body.Close()

			var status struct {
				Status        string   `json:"status"`
				Version       string   `json:"version"`
				LLMProviders  []string `json:"llm_providers"`
				Vocabulary    string   `json:"vocabulary"`
				Synthesizer   string   `json:"synthesizer"`
				Recognizer    string   `json:"recognizer"`
				CachedPhrases int      `json:"cached_phrases"`
				State         string   `json:"state"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("parse status: %w", err)
			}

			providers := strings.Join(status.LLMProviders, ", ")
			if providers == "" {
				providers = "none (built-in word list)"
			}
			fmt.Fprintf(out, "Status:     %s\n", status.Status)
			fmt.Fprintf(out, "Version:    %s\n", status.Version)
			fmt.Fprintf(out, "Session:    %s\n", status.State)
			fmt.Fprintf(out, "Providers:  %s\n", providers)
			fmt.Fprintf(out, "Vocabulary: %s\n", status.Vocabulary)
			fmt.Fprintf(out, "Speech:     %s / %s (%d cached)\n", status.Synthesizer, status.Recognizer, status.CachedPhrases)
			fmt.Fprintf(out, "Address:    %s\n", addr)
			return nil
		},
	}
}

func logsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			logPath := config.ResolvePaths(dir, cfg).LogFile

			file, err := os.Open(logPath)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No log file found. Start the daemon first.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer file.Close()

			return tail(cmd.OutOrStdout(), file, 4096)
		},
	}
}

// tail prints the complete lines within the last n bytes of f.
func tail(w io.Writer, f *os.File, n int64) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	offset := max(info.Size()-n, 0)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(addr string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the parlanced binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("parlanced"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "parlanced")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/parlanced", "./parlanced"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("parlanced binary not found (build with 'go build ./cmd/parlanced')")
}
