package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stereowatch/internal/ipc"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and endpoint status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, resp *ipc.StatusResponse) {
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Daemon:   %s (pid %d)\n", runningLabel(resp.Running, colorize), resp.PID)
	if !resp.StartedAt.IsZero() {
		fmt.Fprintf(out, "Uptime:   %s\n", time.Since(resp.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(out, "Events:   %s\n", resp.EventDBPath)
	fmt.Fprintln(out)

	if len(resp.Endpoints) == 0 {
		fmt.Fprintln(out, "No Bluetooth audio endpoints seen yet.")
		return
	}

	rows := make([][]string, 0, len(resp.Endpoints))
	for _, ep := range resp.Endpoints {
		rows = append(rows, []string{
			ep.Name,
			ep.ID,
			yesNo(ep.Connected),
			modeLabel(ep.State, colorize),
			strconv.Itoa(ep.FailureStreak),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Name", "Address", "Connected", "Mode", "Probe Failures"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func runningLabel(running, colorize bool) string {
	if running {
		return colorLabel("running", ansiGreen, colorize)
	}
	return colorLabel("stopped", ansiRed, colorize)
}

func modeLabel(state string, colorize bool) string {
	switch state {
	case "stereo":
		return colorLabel(state, ansiGreen, colorize)
	case "hands-free":
		return colorLabel(state, ansiYellow, colorize)
	case "no-device":
		return colorLabel(state, ansiRed, colorize)
	default:
		return state
	}
}

func colorLabel(label, color string, colorize bool) string {
	if !colorize {
		return label
	}
	return color + label + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
