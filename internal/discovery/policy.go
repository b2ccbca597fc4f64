package discovery

import (
	"net/url"
	"strings"
)

// policyRule maps path fragments to a human-readable block reason.
// Policy blocks are intentional exclusions, not errors: the pages exist
// and are reachable, but crawling them has no SEO value and may mutate
// server state (carts, logins).
type policyRule struct {
	fragments []string
	reason    string
}

// policyRules are the built-in path rules applied at admission, checked
// in order. The first matching rule wins.
var policyRules = []policyRule{
	{
		fragments: []string{"/login", "/signin", "/sign-in", "/signup", "/sign-up", "/register", "/auth/", "/password", "/logout"},
		reason:    "Login/authentication page",
	},
	{
		fragments: []string{"/cart", "/checkout", "/basket"},
		reason:    "Cart/checkout page",
	},
	{
		fragments: []string{"/admin", "/wp-admin", "/dashboard", "/account", "/my-account"},
		reason:    "Admin/dashboard page",
	},
	{
		fragments: []string{"/api/", "/wp-json", "/graphql", "/rest/"},
		reason:    "Raw API endpoint",
	},
}

// policyBlockReason returns the block reason for rawURL's path, or
// ok=false when no built-in rule matches.
func policyBlockReason(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	path := strings.ToLower(u.Path)
	if path == "" {
		return "", false
	}

	for _, rule := range policyRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(path, fragment) {
				return rule.reason, true
			}
		}
	}

	return "", false
}
