// Package security keeps secrets out of log output and config dumps.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely contain secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|pass|dsn|api_key)`)

// Rule rewrites every match of Pattern with Replacement. Replacement may
// reference submatches ($1); an empty Replacement means RedactPlaceholder.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

func (r Rule) apply(s string) string {
	repl := r.Replacement
	if repl == "" {
		repl = RedactPlaceholder
	}
	return r.Pattern.ReplaceAllString(s, repl)
}

// Redactor replaces secret values in strings and maps with a redaction
// placeholder. Rules catch known token formats, literals catch values
// configured at runtime (probe tokens). Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	rules    []Rule
	literals []string
}

// NewRedactor creates a Redactor loaded with DefaultRules.
func NewRedactor() *Redactor {
	return &Redactor{rules: DefaultRules()}
}

// AddRule appends a rule.
func (r *Redactor) AddRule(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces every rule match and literal value in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	rules := r.rules
	literals := r.literals
	r.mu.RUnlock()

	for _, rule := range rules {
		s = rule.apply(s)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// RedactMap walks a decoded document and replaces values whose keys look
// like secrets (token, secret, pass, dsn, api_key). Other strings go
// through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

// DefaultRules returns the built-in rules. Order matters: the URL form of
// a bot token is rewritten before the bare form.
func DefaultRules() []Rule {
	return []Rule{
		// Bot API URLs: /bot<token>/method
		{Pattern: regexp.MustCompile(`/bot[0-9]+:[^/\s"]+/`), Replacement: "/bot" + RedactPlaceholder + "/"},
		// Bare bot tokens: <bot id>:<35-char secret>
		{Pattern: regexp.MustCompile(`\b[0-9]{5,}:[A-Za-z0-9_-]{30,}`)},
		// Sentry DSN public key.
		{Pattern: regexp.MustCompile(`(https?://)[0-9a-f]{16,}@`), Replacement: "${1}" + RedactPlaceholder + "@"},
		// Bearer tokens.
		{Pattern: regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]{8,}=*`), Replacement: "${1}" + RedactPlaceholder},
	}
}
