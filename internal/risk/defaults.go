package risk

import "signupguard/internal/types"

// DefaultRegistry returns the built-in network registry used when no
// registry file is configured. Tiers reflect each network's published
// automation stance: tier 0 networks expose signup APIs and explicitly
// allow tooling, tier 1 are generic affiliate networks with no
// anti-automation language, tier 2 forbid automated account actions in
// their ToS, tier 3 actively enforce against any automation.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRegistryConfig())
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}

// DefaultRegistryConfig is the built-in network table.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Networks: []types.Network{
			{
				ID:             "shareasale",
				DomainPatterns: []string{"shareasale.com", "*.shareasale.com"},
				TOSLevel:       types.TierGeneric,
				APIAvailable:   true,
			},
			{
				ID:             "impact",
				DomainPatterns: []string{"impact.com", "app.impact.com"},
				TOSLevel:       types.TierGeneric,
				APIAvailable:   true,
			},
			{
				ID:             "clickbank",
				DomainPatterns: []string{"clickbank.com", "accounts.clickbank.com"},
				TOSLevel:       types.TierGeneric,
				APIAvailable:   false,
			},
			{
				ID:             "cj-affiliate",
				DomainPatterns: []string{"cj.com", "signup.cj.com"},
				TOSLevel:       types.TierGeneric,
				APIAvailable:   true,
			},
			{
				ID:             "amazon-associates",
				DomainPatterns: []string{"affiliate-program.amazon.com", "amazon.com/associates"},
				TOSLevel:       types.TierRestricted,
				APIAvailable:   false,
			},
			{
				ID:             "rakuten-advertising",
				DomainPatterns: []string{"rakutenadvertising.com", "linkshare.com"},
				TOSLevel:       types.TierRestricted,
				APIAvailable:   true,
			},
			{
				ID:             "ebay-partner-network",
				DomainPatterns: []string{"partnernetwork.ebay.com", "epn.ebay.com"},
				TOSLevel:       types.TierRestricted,
				APIAvailable:   true,
			},
			{
				ID:             "linkedin",
				DomainPatterns: []string{"linkedin.com", "*.linkedin.com"},
				TOSLevel:       types.TierForbidden,
				APIAvailable:   false,
			},
			{
				ID:             "facebook",
				DomainPatterns: []string{"facebook.com", "*.facebook.com", "meta.com"},
				TOSLevel:       types.TierForbidden,
				APIAvailable:   false,
			},
		},
		// Pinned low-risk under signed partner agreements.
		LowRiskPartners: []string{"shareasale", "impact"},
	}
}
