package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/sqlite"
)

// Rule kinds.
const (
	KindSubstring = "substring"
	KindRegex     = "regex"
)

// compiledRule is a stored rule ready for matching. Substring rules
// match case-insensitively; regex rules match as written.
type compiledRule struct {
	pattern  string
	category domain.Category
	re       *regexp.Regexp // nil for substring rules
	needle   string         // lowercased substring
}

func (r *compiledRule) matches(message string) bool {
	if r.re != nil {
		return r.re.MatchString(message)
	}
	return strings.Contains(strings.ToLower(message), r.needle)
}

// compileRules turns stored rules into matchers. A rule whose pattern
// does not compile is skipped with an error rather than disabling the
// whole set.
func compileRules(stored []sqlite.Rule) ([]compiledRule, error) {
	var rules []compiledRule
	var bad []string
	for _, r := range stored {
		switch r.Kind {
		case KindSubstring:
			rules = append(rules, compiledRule{
				pattern:  r.Pattern,
				category: r.Category,
				needle:   strings.ToLower(r.Pattern),
			})
		case KindRegex:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				bad = append(bad, r.Pattern)
				continue
			}
			rules = append(rules, compiledRule{pattern: r.Pattern, category: r.Category, re: re})
		default:
			bad = append(bad, r.Pattern)
		}
	}
	if len(bad) > 0 {
		return rules, fmt.Errorf("%w: %s", domain.ErrBadRulePattern, strings.Join(bad, ", "))
	}
	return rules, nil
}
