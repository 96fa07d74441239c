package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"worklog-summary/internal/config"
)

const (
	pidFileName    = "worklog-summary.pid"
	daemonLogName  = "worklog-summary.log"
	stopPollPeriod = 500 * time.Millisecond
	stopAttempts   = 10
)

var errDaemonNotRunning = errors.New("daemon is not running")

func NewDaemonCmd() *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the HTTP server in the background (start/stop/restart/status)",
	}

	daemonCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the server in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveDaemonFiles().start()
		},
	})
	daemonCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the background server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveDaemonFiles().stop()
		},
	})
	daemonCmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the background server",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := resolveDaemonFiles()
			if err := files.stop(); err != nil && !errors.Is(err, errDaemonNotRunning) {
				return err
			}
			return files.start()
		},
	})
	daemonCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the background server is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveDaemonFiles().status()
			return nil
		},
	})

	return daemonCmd
}

// daemonFiles 后台进程使用的 pid 文件、日志文件和监听地址
type daemonFiles struct {
	pidPath string
	logPath string
	address string
}

// resolveDaemonFiles places the pid file next to the database and the log at
// storage.log_path.
func resolveDaemonFiles() *daemonFiles {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &daemonFiles{pidPath: pidFileName, logPath: daemonLogName}
	}
	return daemonFilesFor(cfg)
}

func daemonFilesFor(cfg *config.Config) *daemonFiles {
	dataDir := filepath.Dir(cfg.Storage.DBPath)
	files := &daemonFiles{
		pidPath: filepath.Join(dataDir, pidFileName),
		logPath: cfg.Storage.LogPath,
		address: cfg.Server.Address,
	}
	if files.logPath == "" {
		files.logPath = filepath.Join(dataDir, daemonLogName)
	}
	return files
}

// runningPid returns the recorded pid if that process is alive. A stale pid
// file is removed.
func (d *daemonFiles) runningPid() (int, bool) {
	data, err := os.ReadFile(d.pidPath)
	if err != nil {
		return 0, false
	}
	pid, err := parsePid(data)
	if err != nil || !processAlive(pid) {
		_ = os.Remove(d.pidPath)
		return 0, false
	}
	return pid, true
}

func parsePid(data []byte) (int, error) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d", pid)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func (d *daemonFiles) start() error {
	if pid, ok := d.runningPid(); ok {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	for _, dir := range []string{filepath.Dir(d.logPath), filepath.Dir(d.pidPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	logFile, err := os.OpenFile(d.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	args := []string{"serve"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	serve := exec.Command(executable, args...)
	serve.Stdout = logFile
	serve.Stderr = logFile
	serve.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := serve.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(serve.Process.Pid)), 0644); err != nil {
		_ = serve.Process.Kill()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	fmt.Printf("Daemon started (PID: %d, listening on %s, log: %s)\n", serve.Process.Pid, d.address, d.logPath)
	return nil
}

// stop sends SIGTERM so serve can drain the dispatcher, then SIGKILL after
// stopAttempts polls.
func (d *daemonFiles) stop() error {
	pid, ok := d.runningPid()
	if !ok {
		return errDaemonNotRunning
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	for i := 0; i < stopAttempts; i++ {
		time.Sleep(stopPollPeriod)
		if !processAlive(pid) {
			_ = os.Remove(d.pidPath)
			fmt.Printf("Daemon stopped (PID: %d)\n", pid)
			return nil
		}
	}

	_ = process.Signal(syscall.SIGKILL)
	_ = os.Remove(d.pidPath)
	fmt.Printf("Daemon force stopped (PID: %d)\n", pid)
	return nil
}

func (d *daemonFiles) status() {
	pid, ok := d.runningPid()
	if !ok {
		fmt.Println("Status: Not running")
		return
	}
	fmt.Printf("Status: Running (PID: %d)\n", pid)
	fmt.Printf("PID file: %s\n", d.pidPath)
	fmt.Printf("Log file: %s\n", d.logPath)
	fmt.Printf("Health:   %s\n", checkHealth(d.address))
}

// checkHealth calls GET /health on the local server.
func checkHealth(address string) string {
	if address == "" {
		return "unknown"
	}
	url := "http://" + healthHost(address) + "/health"
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "unreachable (" + err.Error() + ")"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "unhealthy (" + resp.Status + ")"
	}
	return "ok"
}

// healthHost turns a listen address such as ":5000" into a dialable host.
func healthHost(address string) string {
	if strings.HasPrefix(address, ":") {
		return "127.0.0.1" + address
	}
	if strings.HasPrefix(address, "0.0.0.0:") {
		return "127.0.0.1" + strings.TrimPrefix(address, "0.0.0.0")
	}
	return address
}
