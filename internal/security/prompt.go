// Package security screens model prompts built from patient free text
package security

import (
	"regexp"
	"strings"
)

var injectionLiterals = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard all previous",
	"forget all previous",
	"ignore the above",
	"disregard the above",
	"your new instructions",
	"your new task",
	"new directive",
	"system override",
	"jailbreak",
	"developer mode",
}

var injectionRegexes = []string{
	`(?i)ignore\s+(all\s+)?(previous|above)\s+(instructions?|prompts?|rules?|directives?)`,
	`(?i)disregard\s+(all\s+)?(previous|above)\s+(instructions?|prompts?|rules?)`,
	`(?i)you\s+are\s+now\s+(a|an)\s+\w+`,
	`(?i)(pretend|act)\s+(that\s+)?you\s+are`,
	`(?i)(override|bypass)\s+(all\s+)?(rules?|restrictions?|filters?)`,
	`(?i)system:\s*you\s+must`,
	`(?i)<\|.*\|>`,
	`(?i)###\s*(instruction|system)`,
}

type secretPattern struct {
	name       string
	regex      *regexp.Regexp
	redactWith string
}

var defaultSecretPatterns = []struct {
	name       string
	pattern    string
	redactWith string
}{
	{"AWS Access Key", `AKIA[0-9A-Z]{16}`, "AKIA****"},
	{"GitHub Token", `gh[pousr]_[0-9a-zA-Z]{36}`, "gh*_****"},
	{"Google API Key", `AIza[0-9A-Za-z\-_]{35}`, "AIza****"},
	{"Private Key", `-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`, "PRIVATE_KEY****"},
	{"JWT Token", `eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+`, "eyJ****"},
	{"Generic Secret", `(?i)(secret|password|passwd|api[_-]?key|token)['"]?\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`, "SECRET****"},
	{"Database URL", `(?i)(postgres|mysql|mongodb|redis)://[^\s'"]+:[^\s'"]+@[^\s'"]+`, "DB_URL****"},
}

// Screener checks prompt text for injected instructions and credentials
type Screener struct {
	literals []string
	regexes  []*regexp.Regexp
	secrets  []secretPattern
}

// Finding is the outcome of screening one prompt
type Finding struct {
	Injection bool     // text tries to steer the model
	Secrets   []string // names of credential patterns found
	Text      string   // prompt with credentials redacted
}

// Clean reports whether nothing was flagged
func (f Finding) Clean() bool {
	return !f.Injection && len(f.Secrets) == 0
}

func NewScreener() *Screener {
	s := &Screener{
		literals: make([]string, len(injectionLiterals)),
		regexes:  make([]*regexp.Regexp, 0, len(injectionRegexes)),
		secrets:  make([]secretPattern, 0, len(defaultSecretPatterns)),
	}

	for i, lit := range injectionLiterals {
		s.literals[i] = strings.ToLower(lit)
	}
	for _, pattern := range injectionRegexes {
		s.regexes = append(s.regexes, regexp.MustCompile(pattern))
	}
	for _, p := range defaultSecretPatterns {
		s.secrets = append(s.secrets, secretPattern{
			name:       p.name,
			regex:      regexp.MustCompile(p.pattern),
			redactWith: p.redactWith,
		})
	}

	return s
}

// DetectInjection reports whether input contains instruction-override phrasing
func (s *Screener) DetectInjection(input string) bool {
	lower := strings.ToLower(input)
	for _, lit := range s.literals {
		if strings.Contains(lower, lit) {
			return true
		}
	}
	for _, re := range s.regexes {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// Screen flags injected instructions and redacts credentials. The returned
// text equals the input when no credential matched.
func (s *Screener) Screen(input string) Finding {
	f := Finding{Injection: s.DetectInjection(input), Text: input}
	for _, p := range s.secrets {
		if p.regex.MatchString(f.Text) {
			f.Secrets = append(f.Secrets, p.name)
			f.Text = p.regex.ReplaceAllString(f.Text, p.redactWith)
		}
	}
	return f
}
