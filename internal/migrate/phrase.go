// Package migrate converts legacy free-text frequency phrases into structured
// configuration fields. It is a one-time conversion tool; the scoring engine
// never parses phrases.
//
// Rules are tried in a fixed order and the first match wins:
//
//  1. avoidance      "avoid sugar all week", "none this week"
//  2. weekly limit   "no more than N", "at most N", "<= N", "max N", "up to N",
//     "N or fewer", each followed by "per week" or "a week"
//  3. N of M days    "5 of 7 days", "5 out of 7 days"
//  4. consecutive    "3 consecutive days", "3 days in a row"
//  5. at least N     "at least 3 days per week", "3 days a week", "3x per week"
//  6. every day      "every day", "daily", "each day", "all week"
//
// Weekly limits are checked before day counts, so a limit is never read as a
// minimum. Within rule 2 the alternatives are listed from most to least
// explicit.
package migrate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ahrav/go-adhere/internal/domain"
)

// ErrUnrecognized is returned for phrases no rule matches.
var ErrUnrecognized = errors.New("unrecognized frequency phrase")

// Kind classifies what a phrase converts into.
type Kind string

// Phrase kinds.
const (
	KindRequirement Kind = "requirement"
	KindWeeklyLimit Kind = "weekly_limit"
)

// Result is a parsed phrase. Requirement is set for KindRequirement and Limit
// for KindWeeklyLimit.
type Result struct {
	Phrase      string                       `json:"phrase"`
	Rule        string                       `json:"rule"`
	Kind        Kind                         `json:"kind"`
	Requirement *domain.FrequencyRequirement `json:"requirement,omitempty"`
	Limit       float64                      `json:"limit,omitempty"`
}

type rule struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (Result, error)
}

const week = `(?:per|a|each|every|/)\s*week`

var rules = []rule{
	{
		name: "avoidance",
		re:   regexp.MustCompile(`^(?:avoid\b.*\b(?:all|entire|whole)\s+week|none\s+(?:this|per|a)\s+week|zero\s+(?:days\s+)?` + week + `)$`),
		build: func([]string) (Result, error) {
			return requirement(domain.DefaultWeekDays, domain.DefaultWeekDays, domain.FrequencyAvoidance), nil
		},
	},
	{
		name: "weekly_limit",
		re: regexp.MustCompile(`^(?:no\s+more\s+than|at\s+most|<=|≤|max(?:imum)?(?:\s+of)?|up\s+to)\s+(\d+(?:\.\d+)?)\b.*?` + week + `$` +
			`|^(\d+(?:\.\d+)?)\s+or\s+(?:fewer|less)\b.*?` + week + `$`),
		build: func(m []string) (Result, error) {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindWeeklyLimit, Limit: n}, nil
		},
	},
	{
		name: "n_of_m",
		re:   regexp.MustCompile(`^(\d+)\s+(?:of|out\s+of)\s+(\d+)\s+days?$`),
		build: func(m []string) (Result, error) {
			return requirementFrom(m[1], m[2], domain.FrequencyCount)
		},
	},
	{
		name: "consecutive",
		re:   regexp.MustCompile(`^(\d+)\s+(?:consecutive\s+days|days\s+in\s+a\s+row)$`),
		build: func(m []string) (Result, error) {
			return requirementFrom(m[1], strconv.Itoa(domain.DefaultWeekDays), domain.FrequencyConsecutive)
		},
	},
	{
		name: "at_least",
		re:   regexp.MustCompile(`^(?:at\s+least\s+|min(?:imum)?(?:\s+of)?\s+)?(\d+)\s*(?:days?|times|x)\s+` + week + `$`),
		build: func(m []string) (Result, error) {
			return requirementFrom(m[1], strconv.Itoa(domain.DefaultWeekDays), domain.FrequencyCount)
		},
	},
	{
		name: "every_day",
		re:   regexp.MustCompile(`^(?:every\s+day|daily|each\s+day|all\s+week)$`),
		build: func([]string) (Result, error) {
			return requirement(domain.DefaultWeekDays, domain.DefaultWeekDays, domain.FrequencyCount), nil
		},
	},
}

// Parse converts one phrase. Matching is case-insensitive and ignores
// surrounding whitespace and trailing punctuation.
func Parse(phrase string) (Result, error) {
	norm := normalize(phrase)
	for _, r := range rules {
		m := r.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		res, err := r.build(m)
		if err != nil {
			return Result{}, fmt.Errorf("%q: %w", phrase, err)
		}
		res.Phrase = phrase
		res.Rule = r.name
		if res.Requirement != nil {
			if err := res.Requirement.Validate(); err != nil {
				return Result{}, fmt.Errorf("%q: %w", phrase, err)
			}
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("%q: %w", phrase, ErrUnrecognized)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!;, ")
	return strings.Join(strings.Fields(s), " ")
}

func requirement(required, total int, mode domain.FrequencyMode) Result {
	return Result{
		Kind:        KindRequirement,
		Requirement: &domain.FrequencyRequirement{RequiredDays: required, TotalDays: total, Mode: mode},
	}
}

func requirementFrom(required, total string, mode domain.FrequencyMode) (Result, error) {
	r, err := strconv.Atoi(required)
	if err != nil {
		return Result{}, err
	}
	t, err := strconv.Atoi(total)
	if err != nil {
		return Result{}, err
	}
	return requirement(r, t, mode), nil
}
