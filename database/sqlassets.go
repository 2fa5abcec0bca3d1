package sqlassets

import _ "embed"

//go:embed schema/001_tenants.sql
var TenantsSQL string

//go:embed schema/002_agents.sql
var AgentsSQL string

//go:embed schema/003_dashboards.sql
var DashboardsSQL string

//go:embed schema/004_dashboard_agents.sql
var DashboardAgentsSQL string

// Ordered returns the schema files in the order they must be applied.
func Ordered() []string {
	return []string{TenantsSQL, AgentsSQL, DashboardsSQL, DashboardAgentsSQL}
}
