package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/cli"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/tui/theme"
)

func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the fleetview log file",
		Long: `Print the shared log file written by every fleetview command, including
the live view. JSON-formatted lines are pretty-printed.`,
		Example: `# Follow the live view from another terminal
fleetview logs -f

# Last 50 lines from the channel component
fleetview logs -n 50 --component channel`,
		Args: cobra.NoArgs,
		RunE: runLogs,
	}
	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", -1, "Number of lines to show from the end of the file (default: all)")
	cmd.Flags().StringSlice("component", nil, "Only show these components")
	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	logCfg, _ := logging.LoadConfig()
	path := logCfg.File.ResolvedPath()
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	components, _ := cmd.Flags().GetStringSlice("component")
	jsonOutput := cli.GetOptions(cmd).JSONOutput

	filter := newComponentFilter(components)
	out := cmd.OutOrStdout()
	emit := func(line string) {
		if line == "" || !filter.visible(line) {
			return
		}
		if jsonOutput {
			fmt.Fprintln(out, line)
			return
		}
		fmt.Fprintln(out, formatLogLine(line))
	}

	if _, err := os.Stat(path); err != nil && !follow {
		return fmt.Errorf("no log file at %s: %w", path, err)
	}

	offset, err := printTail(path, lines, emit)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if !follow {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return followFile(ctx, path, offset, emit)
}

// printTail emits the last n lines of path (all when n < 0) and returns the
// offset following tail picks up from.
func printTail(path string, n int, emit func(string)) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if n >= 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	for _, line := range all {
		emit(line)
	}

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// followFile streams lines appended after offset until ctx is cancelled. The
// file may not exist yet; tail reopens it when it appears or is rotated.
func followFile(ctx context.Context, path string, offset int64, emit func(string)) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			emit(strings.TrimRight(line.Text, "\r"))
		}
	}
}

// componentFilter matches both JSON lines and the text formatter's
// "[LEVEL] [component]" prefix.
type componentFilter map[string]bool

func newComponentFilter(components []string) componentFilter {
	if len(components) == 0 {
		return nil
	}
	f := make(componentFilter, len(components))
	for _, c := range components {
		f[c] = true
	}
	return f
}

func (f componentFilter) visible(line string) bool {
	if f == nil {
		return true
	}
	if entry, ok := parseJSONLine(line); ok {
		component, _ := entry["component"].(string)
		return f[component]
	}
	for c := range f {
		if strings.Contains(line, "] ["+c+"]") {
			return true
		}
	}
	return false
}

func parseJSONLine(line string) (map[string]interface{}, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return nil, false
	}
	return entry, true
}

// formatLogLine pretty-prints JSON log lines; text lines pass through.
func formatLogLine(line string) string {
	entry, ok := parseJSONLine(line)
	if !ok {
		return line
	}
	t := theme.DefaultTheme

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Local().Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = t.Error
	case "warning", "warn":
		levelStyle = t.Warning
	case "info":
		levelStyle = t.Info
	default:
		levelStyle = t.Muted
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", t.Muted.Render(k), entry[k]))
	}

	return strings.TrimRight(fmt.Sprintf("%s %s [%s] %s %s",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		t.Accent.Render(component),
		msg,
		strings.Join(fields, " "),
	), " ")
}
