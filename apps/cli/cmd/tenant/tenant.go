package tenantcmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowlyst-io/agents/domains/tenants/be/service"
	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// ServiceOpener yields a tenants service and a release func for its resources.
type ServiceOpener func(ctx context.Context) (service.Service, func(), error)

// Command groups tenant management helpers.
func Command(open ServiceOpener) *cobra.Command {
	if open == nil {
		panic("tenant service opener is required")
	}

	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (list/create/delete)",
	}

	cmd.AddCommand(listCommand(open))
	cmd.AddCommand(createCommand(open))
	cmd.AddCommand(deleteCommand(open))
	return cmd
}

func listCommand(open ServiceOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants with their agent counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			tenants, err := svc.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tAGENTS")
			for _, t := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%d\n", t.ID, t.Name, t.AgentCount)
			}
			return w.Flush()
		},
	}
}

func createCommand(open ServiceOpener) *cobra.Command {
	var name string

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			t, err := svc.Create(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s)\n", t.Name, t.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "Tenant name")
	_ = c.MarkFlagRequired("name")
	return c
}

func deleteCommand(open ServiceOpener) *cobra.Command {
	var (
		rawID     string
		action    string
		rawTarget string
	)

	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant, choosing what happens to its agents",
		Long: "Delete a tenant. --action decides the fate of its agents: make_general detaches them, " +
			"reassign moves them to --target, delete_agents removes them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(strings.TrimSpace(rawID))
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}

			input := service.DeleteInput{Action: strings.TrimSpace(action)}
			if strings.TrimSpace(rawTarget) != "" {
				target, err := uuid.Parse(strings.TrimSpace(rawTarget))
				if err != nil {
					return fmt.Errorf("invalid --target: %w", err)
				}
				input.TargetTenantID = &target
			}

			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.Delete(cmd.Context(), id, input)
			if err != nil {
				return fmt.Errorf("delete tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s deleted: %d agent(s) %s, %d dashboard(s) made general\n",
				id, result.AgentsAffected, describe(result.Disposition), result.DashboardsCleared)
			return nil
		},
	}

	c.Flags().StringVar(&rawID, "id", "", "Tenant id")
	c.Flags().StringVar(&action, "action", "", "Agent disposition: make_general, reassign or delete_agents")
	c.Flags().StringVar(&rawTarget, "target", "", "Target tenant id (reassign only)")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("action")
	return c
}

func describe(d persistence.Disposition) string {
	switch d {
	case persistence.DispositionMakeGeneral:
		return "made general"
	case persistence.DispositionReassign:
		return "reassigned"
	case persistence.DispositionDeleteAgents:
		return "deleted"
	default:
		return string(d)
	}
}
