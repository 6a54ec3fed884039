package antispam

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Default keyword patterns covering the solicitation spam the form actually
// receives: SEO/link-building offers, gambling, crypto/forex, loans, adult
// content, and messaging-app callouts, in both Italian and English.
var defaultKeywordPatterns = []string{
	`\bseo\b`,
	`\bposizionamento\s+google\b`,
	`\blink\s*building\b`,
	`\bbacklinks?\b`,
	`\bguest\s*post`,
	`\bcasino\b`,
	`\bscommesse\b`,
	`\bslot\b`,
	`\bviagra\b`,
	`\bcrypto\b`,
	`\bcriptovalut\w*\b`,
	`\bforex\b`,
	`\bloan\b`,
	`\bprestito\s+rapido\b`,
	`\bwhatsapp\b`,
	`\btelegram\b`,
	`\bonlyfans\b`,
	`\badult\b`,
	`\bofferta\s+commerciale\b`,
	`\bmake money fast\b`,
	`\bwork from home\b`,
}

var defaultBlockedUserAgents = []string{
	`python-requests`,
	`curl/`,
	`wget`,
	`httpclient`,
	`scrapy`,
	`go-http-client`,
	`node-fetch`,
	`aiohttp`,
}

var defaultDisposableDomains = []string{
	"10minutemail.com",
	"discard.email",
	"dispostable.com",
	"emailondeck.com",
	"fakeinbox.com",
	"guerrillamail.com",
	"mailinator.com",
	"maildrop.cc",
	"sharklasers.com",
	"tempmail.com",
	"temp-mail.org",
	"yopmail.com",
}

var defaultAllowedOriginHosts = []string{
	"castellomongivetto.com",
	"www.castellomongivetto.com",
	"castello-mongivetto.vercel.app",
}

const defaultTrustedHostSuffix = ".vercel.app"

// Rules bundles every tunable used by the anti-abuse evaluators. Instances
// are immutable once built; hot reload swaps the whole value via a Provider.
type Rules struct {
	KeywordPatterns    []*regexp.Regexp
	BlockedUserAgents  []*regexp.Regexp
	DisposableDomains  map[string]struct{}
	AllowedOriginHosts map[string]struct{}
	TrustedHostSuffix  string
}

// AllowedHost reports whether the host is trusted as a request source,
// either by exact match or by the deployment-preview suffix.
func (r *Rules) AllowedHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	if _, ok := r.AllowedOriginHosts[host]; ok {
		return true
	}
	return r.TrustedHostSuffix != "" && strings.HasSuffix(host, r.TrustedHostSuffix)
}

// Disposable reports whether the domain belongs to a known throwaway-email provider.
func (r *Rules) Disposable(domain string) bool {
	_, ok := r.DisposableDomains[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Default builds the built-in rule set.
func Default() *Rules {
	rules, err := build(fileSchema{
		Keywords:           defaultKeywordPatterns,
		BlockedUserAgents:  defaultBlockedUserAgents,
		DisposableDomains:  defaultDisposableDomains,
		AllowedOriginHosts: defaultAllowedOriginHosts,
		TrustedHostSuffix:  defaultTrustedHostSuffix,
	})
	if err != nil {
		// The built-in patterns are constants; a compile failure is a bug.
		panic(err)
	}
	return rules
}

type fileSchema struct {
	Keywords           []string `yaml:"keywords"`
	BlockedUserAgents  []string `yaml:"blocked_user_agents"`
	DisposableDomains  []string `yaml:"disposable_domains"`
	AllowedOriginHosts []string `yaml:"allowed_origin_hosts"`
	TrustedHostSuffix  string   `yaml:"trusted_host_suffix"`
}

// LoadFile reads a YAML rules file. Sections left empty in the file keep the
// built-in defaults, so operators can override just the keyword list.
func LoadFile(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("antispam: read rules file: %w", err)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("antispam: parse rules file: %w", err)
	}

	if len(schema.Keywords) == 0 {
		schema.Keywords = defaultKeywordPatterns
	}
	if len(schema.BlockedUserAgents) == 0 {
		schema.BlockedUserAgents = defaultBlockedUserAgents
	}
	if len(schema.DisposableDomains) == 0 {
		schema.DisposableDomains = defaultDisposableDomains
	}
	if len(schema.AllowedOriginHosts) == 0 {
		schema.AllowedOriginHosts = defaultAllowedOriginHosts
	}
	if strings.TrimSpace(schema.TrustedHostSuffix) == "" {
		schema.TrustedHostSuffix = defaultTrustedHostSuffix
	}

	return build(schema)
}

func build(schema fileSchema) (*Rules, error) {
	keywords, err := compilePatterns(schema.Keywords)
	if err != nil {
		return nil, fmt.Errorf("antispam: keyword pattern: %w", err)
	}
	agents, err := compilePatterns(schema.BlockedUserAgents)
	if err != nil {
		return nil, fmt.Errorf("antispam: user-agent pattern: %w", err)
	}

	return &Rules{
		KeywordPatterns:    keywords,
		BlockedUserAgents:  agents,
		DisposableDomains:  toSet(schema.DisposableDomains),
		AllowedOriginHosts: toSet(schema.AllowedOriginHosts),
		TrustedHostSuffix:  strings.ToLower(strings.TrimSpace(schema.TrustedHostSuffix)),
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	return set
}

// Provider hands out the current rule set and accepts replacements from the
// file watcher. Reads vastly outnumber writes.
type Provider struct {
	mu      sync.RWMutex
	current *Rules
}

// NewProvider constructs a provider serving the given initial rules.
func NewProvider(initial *Rules) *Provider {
	if initial == nil {
		initial = Default()
	}
	return &Provider{current: initial}
}

// Rules returns the current rule set.
func (p *Provider) Rules() *Rules {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Replace swaps in a new rule set. Nil replacements are ignored.
func (p *Provider) Replace(rules *Rules) {
	if rules == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = rules
}
