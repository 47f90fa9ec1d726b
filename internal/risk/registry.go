// Package risk maps URLs to known affiliate/partner networks and derives
// the automation policy their terms of service allow. The registry is
// loaded once at startup and is read-only for the life of the process;
// classification is a pure function of the registry contents.
package risk

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"signupguard/internal/types"
)

// RegistryConfig is the on-disk shape of the network registry.
type RegistryConfig struct {
	Networks []types.Network `yaml:"networks"`

	// LowRiskPartners pins tier-1 networks to low risk under explicit
	// partner agreements. Anything listed here that is not tier 1 is
	// ignored.
	LowRiskPartners []string `yaml:"low_risk_partners"`

	// DefaultTier applies to public domains with no registry entry.
	// The permissive historical default is tier 1; deployments that
	// want always-human-guided for unknown sites set this to 2.
	DefaultTier *int `yaml:"default_tier"`
}

// Registry resolves URLs to networks and networks to policies.
type Registry struct {
	networks    []types.Network
	byID        map[string]types.Network
	partners    map[string]bool
	defaultTier int
}

// Synthetic network IDs produced by Detect when the URL has no registry
// entry.
const (
	LocalNetworkID   = "local"
	GenericNetworkID = "generic"
)

// NewRegistry builds an immutable registry from config.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{
		byID:        make(map[string]types.Network, len(cfg.Networks)),
		partners:    make(map[string]bool, len(cfg.LowRiskPartners)),
		defaultTier: types.TierGeneric,
	}
	if cfg.DefaultTier != nil {
		if *cfg.DefaultTier < types.TierSafe || *cfg.DefaultTier > types.TierForbidden {
			return nil, fmt.Errorf("default_tier %d out of range 0..3", *cfg.DefaultTier)
		}
		r.defaultTier = *cfg.DefaultTier
	}
	for _, n := range cfg.Networks {
		if n.ID == "" {
			return nil, fmt.Errorf("network with patterns %v has empty id", n.DomainPatterns)
		}
		if n.TOSLevel < types.TierSafe || n.TOSLevel > types.TierForbidden {
			return nil, fmt.Errorf("network %q: tos_level %d out of range 0..3", n.ID, n.TOSLevel)
		}
		if _, dup := r.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate network id %q", n.ID)
		}
		r.byID[n.ID] = n
		r.networks = append(r.networks, n)
	}
	for _, id := range cfg.LowRiskPartners {
		r.partners[id] = true
	}
	return r, nil
}

// LoadRegistry reads a YAML registry file. Missing file is an error;
// embedders that have no file use DefaultRegistry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return NewRegistry(cfg)
}

// Networks returns a copy of the registry records.
func (r *Registry) Networks() []types.Network {
	out := make([]types.Network, len(r.networks))
	copy(out, r.networks)
	return out
}

// Lookup returns the registry record for an ID.
func (r *Registry) Lookup(id string) (types.Network, bool) {
	n, ok := r.byID[id]
	return n, ok
}

// Detect resolves a URL to a network record. Longest (most specific)
// domain pattern wins. Loopback and private addresses and *.local hosts
// resolve to a synthetic tier-0 network even without a registry entry.
// Unrecognized public domains resolve to a synthetic default-tier
// network. Detect only fails on an unparsable URL.
func (r *Registry) Detect(rawURL string) (types.Network, error) {
	host, path, err := splitURL(rawURL)
	if err != nil {
		return types.Network{}, err
	}

	if isLocalHost(host) {
		return types.Network{
			ID:             LocalNetworkID,
			DomainPatterns: []string{host},
			TOSLevel:       types.TierSafe,
		}, nil
	}

	type hit struct {
		network types.Network
		pattern string
	}
	var best *hit
	for _, n := range r.networks {
		for _, p := range n.DomainPatterns {
			if !patternMatches(p, host, path) {
				continue
			}
			if best == nil || moreSpecific(p, best.pattern) {
				best = &hit{network: n, pattern: p}
			}
		}
	}
	if best != nil {
		return best.network, nil
	}

	return types.Network{
		ID:             GenericNetworkID + ":" + host,
		DomainPatterns: []string{host},
		TOSLevel:       r.defaultTier,
	}, nil
}

// Classify derives the automation policy for a network ID. Synthetic IDs
// from Detect are classified by their embedded tier; unknown IDs get the
// default tier. Pure: no I/O, no mutable state.
func (r *Registry) Classify(networkID string) types.AutomationPolicy {
	tier := r.defaultTier
	if networkID == LocalNetworkID {
		tier = types.TierSafe
	} else if n, ok := r.byID[networkID]; ok {
		tier = n.TOSLevel
	} else if strings.HasPrefix(networkID, GenericNetworkID+":") {
		tier = r.defaultTier
	}
	return r.policyForTier(tier, r.partners[networkID])
}

// ClassifyNetwork derives the policy for a resolved record, used after
// Detect so synthetic records classify by their own tier.
func (r *Registry) ClassifyNetwork(n types.Network) types.AutomationPolicy {
	return r.policyForTier(n.TOSLevel, r.partners[n.ID])
}

func (r *Registry) policyForTier(tier int, lowRiskPartner bool) types.AutomationPolicy {
	switch {
	case tier <= types.TierSafe:
		return types.AutomationPolicy{Permitted: true, MaxMode: types.ModeFullAuto, RiskLevel: types.RiskLow}
	case tier == types.TierGeneric:
		level := types.RiskMedium
		if lowRiskPartner {
			level = types.RiskLow
		}
		return types.AutomationPolicy{Permitted: true, MaxMode: types.ModeFullAuto, RiskLevel: level}
	case tier == types.TierRestricted:
		return types.AutomationPolicy{Permitted: false, MaxMode: types.ModeHumanGuided, RiskLevel: types.RiskHigh}
	default:
		return types.AutomationPolicy{Permitted: false, MaxMode: types.ModeNone, RiskLevel: types.RiskExtreme}
	}
}

// splitURL extracts lowercase host and path. Scheme-less inputs like
// "example.com/signup" are accepted.
func splitURL(rawURL string) (host, path string, err error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", "", fmt.Errorf("empty url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	h := strings.ToLower(u.Hostname())
	if h == "" {
		return "", "", fmt.Errorf("url %q has no host", rawURL)
	}
	return h, strings.ToLower(u.Path), nil
}

// isLocalHost reports loopback/private addresses and *.local names.
func isLocalHost(host string) bool {
	if host == "localhost" || host == "localhost.localdomain" {
		return true
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
	}
	return false
}

// patternMatches checks one registry pattern against host and path.
// Patterns are a bare domain ("amazon.com", matches the domain and its
// subdomains), a wildcard ("*.amazon.com", subdomains only), or a
// domain with a path prefix ("amazon.com/associates").
func patternMatches(pattern, host, path string) bool {
	pattern = strings.ToLower(pattern)
	domPart := pattern
	pathPart := ""
	if i := strings.IndexByte(pattern, '/'); i >= 0 {
		domPart, pathPart = pattern[:i], pattern[i:]
	}

	var domOK bool
	switch {
	case strings.HasPrefix(domPart, "*."):
		domOK = strings.HasSuffix(host, domPart[1:]) // keep the dot: "*.x.com" -> ".x.com"
	default:
		domOK = host == domPart || strings.HasSuffix(host, "."+domPart)
	}
	if !domOK {
		return false
	}
	if pathPart == "" {
		return true
	}
	return strings.HasPrefix(path, pathPart)
}

// moreSpecific orders patterns: longer pattern strings are more specific,
// with exact domains beating wildcards at equal length.
func moreSpecific(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return !strings.HasPrefix(a, "*.") && strings.HasPrefix(b, "*.")
}

// LowRiskPartners returns the pinned partner IDs, sorted.
func (r *Registry) LowRiskPartners() []string {
	ids := make([]string, 0, len(r.partners))
	for id := range r.partners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
