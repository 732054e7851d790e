package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stereowatch/internal/ipc"
)

func newAppsCommand(ctx *commandContext) *cobra.Command {
	var endpointID string

	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List applications streaming to an endpoint, likely culprit first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Apps(endpointID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(resp.Apps) == 0 {
					fmt.Fprintf(out, "No applications are streaming to %s.\n", resp.EndpointID)
					return nil
				}

				rows := make([][]string, 0, len(resp.Apps))
				for _, app := range resp.Apps {
					name := app.Name
					if !app.Resolved {
						name += " (unresolved)"
					}
					rows = append(rows, []string{
						name,
						fmt.Sprintf("%d", app.PID),
						fmt.Sprintf("%.0f%%", app.Peak*100),
					})
				}
				fmt.Fprintf(out, "Endpoint %s:\n", resp.EndpointID)
				fmt.Fprintln(out, renderTable(
					[]string{"Application", "PID", "Level"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&endpointID, "endpoint", "e", "", "Endpoint address (defaults to the first connected endpoint)")
	return cmd
}
