package legacycmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowlyst-io/agents/domains/embed/be/legacy"
)

// Command groups helpers for the legacy YAML client registry.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Legacy client registry utilities",
	}

	cmd.AddCommand(checkCommand())
	return cmd
}

func checkCommand() *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "check",
		Short: "Validate a legacy clients file and print the dashboards it defines",
		Long:  "Validate a legacy clients file. Without --file the built-in client list is checked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := legacy.Load(strings.TrimSpace(file))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			slugs := clients.Slugs()
			for _, slug := range slugs {
				client, _ := clients.Lookup(slug)
				fmt.Fprintf(out, "%s\t%q\t%d workflow(s)\n", slug, clients.Title(client), len(client.WorkflowIDs))
			}
			fmt.Fprintf(out, "%d client(s) OK\n", len(slugs))
			return nil
		},
	}

	c.Flags().StringVar(&file, "file", "", "Path to the clients YAML file")
	return c
}
