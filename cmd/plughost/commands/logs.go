package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marmos91/plughost/pkg/config"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail the plughost log file",
	Long: `Display and optionally follow the plughost log file.

The file is taken from logging.output in the configuration. Logging to
stdout or stderr leaves nothing to read here.

Examples:
  # Show the last 100 lines
  plughost logs

  # Follow new entries
  plughost logs -f -n 20

  # Only entries since a point in time
  plughost logs --since "2026-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logFile := cfg.Logging.Output
	switch strings.ToLower(logFile) {
	case "stdout", "stderr":
		return fmt.Errorf("plughost is configured to log to %s, not a file\nSet 'logging.output' to a file path to use this command", logFile)
	}
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if !logsFollow {
		return showLogs(out, logFile, logsLines, since)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return followLogs(ctx, out, logFile, logsLines, since)
}

// showLogs writes the last n lines of logFile not older than since.
func showLogs(w io.Writer, logFile string, n int, since time.Time) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	lines, err := tailLines(file, n, since)
	if err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// tailLines keeps a ring of the last n matching lines. Lines without a
// recognizable timestamp always match.
func tailLines(r io.Reader, n int, since time.Time) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts := extractTimestamp(line); !ts.IsZero() && ts.Before(since) {
				continue
			}
		}
		if len(ring) == n {
			ring = append(ring[1:], line)
		} else {
			ring = append(ring, line)
		}
	}
	return ring, scanner.Err()
}

// followLogs prints the tail of logFile, then every line appended to it
// until ctx is done.
func followLogs(ctx context.Context, w io.Writer, logFile string, n int, since time.Time) error {
	if err := showLogs(w, logFile, n, since); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	_, _ = fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", logFile)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					break
				}
				_, _ = fmt.Fprint(w, line)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// textTimeLayout is the timestamp layout of the text log format.
const textTimeLayout = "2006-01-02 15:04:05"

// extractTimestamp returns the time of a log line written in either log
// format, or the zero time.
func extractTimestamp(line string) time.Time {
	// Text format: [2026-01-15 10:30:45] [INFO] ...
	if len(line) > len(textTimeLayout)+1 && line[0] == '[' {
		if t, err := time.ParseInLocation(textTimeLayout, line[1:1+len(textTimeLayout)], time.Local); err == nil {
			return t
		}
	}

	// JSON format: {"time":"2026-01-15T10:30:45.123Z",...}
	const timeKey = `"time":"`
	idx := strings.Index(line, timeKey)
	if idx < 0 {
		return time.Time{}
	}
	rest := line[idx+len(timeKey):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, rest[:end]); err == nil {
		return t
	}
	return time.Time{}
}
