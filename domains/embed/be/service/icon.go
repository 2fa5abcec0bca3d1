package service

import "strings"

// DefaultIcon is used when no keyword matches.
const DefaultIcon = "🤖"

type iconRule struct {
	keywords []string
	all      bool
	icon     string
}

func (r iconRule) matches(name string) bool {
	for _, keyword := range r.keywords {
		hit := strings.Contains(name, keyword)
		if r.all && !hit {
			return false
		}
		if !r.all && hit {
			return true
		}
	}
	return r.all
}

func anyOf(icon string, keywords ...string) iconRule {
	return iconRule{keywords: keywords, icon: icon}
}

func allOf(icon string, keywords ...string) iconRule {
	return iconRule{keywords: keywords, all: true, icon: icon}
}

var alshayaIcons = []iconRule{
	allOf("💼", "tax", "accounting"),
	anyOf("📋", "conduct"),
	anyOf("📄", "policy"),
	anyOf("👥", "payroll", "hr"),
	anyOf("⚙️", "operations"),
	anyOf("📊", "tax code"),
	anyOf("👷", "labour"),
}

var bellwoodIcons = []iconRule{
	anyOf("📋", "policy", "guideline"),
	anyOf("📄", "contract"),
	anyOf("🎯", "strategic", "plan"),
}

var dashboardIcons = map[string][]iconRule{
	"alshaya":      alshayaIcons,
	"alshaya-xero": alshayaIcons,
	"bellwood":     bellwoodIcons,
}

var defaultIcons = []iconRule{
	anyOf("💬", "support", "help"),
	anyOf("💼", "sales", "sell"),
	anyOf("🔧", "tech", "engineering"),
	anyOf("👥", "hr", "people"),
	allOf("💼", "tax", "accounting"),
	anyOf("📋", "conduct"),
	anyOf("📄", "policy"),
	anyOf("👥", "payroll"),
	anyOf("⚙️", "operations"),
	anyOf("📊", "tax code"),
	anyOf("👷", "labour"),
	anyOf("📄", "contract"),
	anyOf("🎯", "strategic", "plan"),
	anyOf("📋", "guideline"),
}

// Icon picks a card icon from keywords in the agent name. Some dashboards
// carry their own keyword table, checked before the shared one.
func Icon(agentName, dashboardSlug string) string {
	name := strings.ToLower(agentName)
	for _, rules := range [][]iconRule{dashboardIcons[dashboardSlug], defaultIcons} {
		for _, rule := range rules {
			if rule.matches(name) {
				return rule.icon
			}
		}
	}
	return DefaultIcon
}
