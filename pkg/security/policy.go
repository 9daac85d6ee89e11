package security

import (
	"fmt"
	"strings"
	"unicode"
)

// PolicyConfig holds the configurable strength thresholds.
type PolicyConfig struct {
	MinLength    int
	MinClasses   int
	MaxRepeatRun int
	Blocklist    []string
}

// PolicyResult reports the outcome of a policy evaluation with every broken
// rule, not just the first, so callers can surface all problems at once.
type PolicyResult struct {
	OK         bool
	Violations []string
}

// PasswordPolicy validates plaintext passwords against strength rules.
// Evaluation is a pure function of the input; the policy holds no state
// beyond its configuration.
type PasswordPolicy struct {
	minLength    int
	minClasses   int
	maxRepeatRun int
	blocklist    map[string]struct{}
}

// NewPasswordPolicy applies defaults for any unset threshold.
func NewPasswordPolicy(cfg PolicyConfig) *PasswordPolicy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 10
	}
	if cfg.MinClasses <= 0 {
		cfg.MinClasses = 3
	}
	if cfg.MaxRepeatRun <= 0 {
		cfg.MaxRepeatRun = 2
	}

	blocklist := make(map[string]struct{}, len(cfg.Blocklist))
	for _, entry := range cfg.Blocklist {
		blocklist[strings.ToLower(entry)] = struct{}{}
	}

	return &PasswordPolicy{
		minLength:    cfg.MinLength,
		minClasses:   cfg.MinClasses,
		maxRepeatRun: cfg.MaxRepeatRun,
		blocklist:    blocklist,
	}
}

// Evaluate runs every rule, mandatory and optional, and collects all
// violations.
func (p *PasswordPolicy) Evaluate(password string) PolicyResult {
	violations := p.mandatoryViolations(password)
	if _, blocked := p.blocklist[strings.ToLower(password)]; blocked {
		violations = append(violations, "password is too common")
	}

	return PolicyResult{OK: len(violations) == 0, Violations: violations}
}

// EvaluateMandatory runs only the mandatory rules. The passphrase generator
// accepts candidates on this subset; advisory rules like the blocklist do
// not apply to random material.
func (p *PasswordPolicy) EvaluateMandatory(password string) PolicyResult {
	violations := p.mandatoryViolations(password)
	return PolicyResult{OK: len(violations) == 0, Violations: violations}
}

func (p *PasswordPolicy) mandatoryViolations(password string) []string {
	var violations []string

	if len([]rune(password)) < p.minLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", p.minLength))
	}

	if classes := characterClasses(password); classes < p.minClasses {
		violations = append(violations, fmt.Sprintf("password must use at least %d of: lowercase, uppercase, digits, symbols", p.minClasses))
	}

	if run := longestRepeatRun(password); run > p.maxRepeatRun {
		violations = append(violations, fmt.Sprintf("password must not repeat a character more than %d times in a row", p.maxRepeatRun))
	}

	return violations
}

func characterClasses(password string) int {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			classes++
		}
	}
	return classes
}

func longestRepeatRun(password string) int {
	var longest, run int
	var prev rune
	for i, r := range password {
		if i == 0 || r != prev {
			run = 1
		} else {
			run++
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}
