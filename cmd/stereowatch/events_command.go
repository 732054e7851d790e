package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stereowatch/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var endpointID string
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent mode transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Events(endpointID, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No mode transitions recorded.")
					return nil
				}

				rows := make([][]string, 0, len(resp.Events))
				for _, ev := range resp.Events {
					rows = append(rows, []string{
						ev.At.Local().Format("2006-01-02 15:04:05"),
						ev.EndpointName,
						fmt.Sprintf("%s -> %s", ev.Previous, ev.Current),
						summarizeApps(ev),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Time", "Endpoint", "Transition", "Apps"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&endpointID, "endpoint", "e", "", "Filter by endpoint address")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show")

	cmd.AddCommand(newEventsClearCommand(ctx))
	return cmd
}

func newEventsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the recorded transition history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventsClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d events\n", resp.Removed)
				return nil
			})
		},
	}
}

func summarizeApps(ev ipc.ModeEvent) string {
	if len(ev.Apps) == 0 {
		if ev.AttributionIncomplete {
			return "attribution incomplete"
		}
		return ""
	}
	names := make([]string, 0, 3)
	for i, app := range ev.Apps {
		if i >= 3 {
			names = append(names, fmt.Sprintf("+%d", len(ev.Apps)-i))
			break
		}
		names = append(names, app.Name)
	}
	summary := strings.Join(names, ", ")
	if ev.AttributionIncomplete {
		summary += " (incomplete)"
	}
	return summary
}
