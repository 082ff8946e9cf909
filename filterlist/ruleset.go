package filterlist

import (
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/traychrome/adblock/rules"
)

// RuleSet is an ordered sequence of filtering rules.  Insertion order is the
// evaluation order, duplicates are permitted.  A RuleSet is never modified
// after creation, so it is safe for concurrent use.
type RuleSet struct {
	rules []*rules.Rule
}

// NewRuleSet returns a rule set with a rule for each line.  Lines are kept
// even when they are empty or comments, these simply never match or are
// skipped by the caller.  A nil lines is an empty set.
func NewRuleSet(lines []string) (s *RuleSet) {
	s = &RuleSet{
		rules: make([]*rules.Rule, 0, len(lines)),
	}

	for _, line := range lines {
		s.rules = append(s.rules, rules.NewRule(line))
	}

	return s
}

// NewRuleSetFromLists scans the lists in order and returns a rule set with
// all of their rules.  Blank lines are dropped.
func NewRuleSetFromLists(lists ...RuleList) (s *RuleSet, err error) {
	s = &RuleSet{}

	var errs []error
	for _, l := range lists {
		sc := l.NewScanner()
		for sc.Scan() {
			r, _ := sc.Rule()
			s.rules = append(s.rules, r)
		}

		if err = sc.Err(); err != nil {
			errs = append(errs, errors.Annotate(err, "scanning rule list %d: %w", l.GetID()))
		}
	}

	if err = errors.Join(errs...); err != nil {
		return nil, err
	}

	return s, nil
}

// Len returns the number of rules in the set.  s may be nil.
func (s *RuleSet) Len() (n int) {
	if s == nil {
		return 0
	}

	return len(s.rules)
}

// Lines returns a copy of the rule texts in order.  s may be nil.
func (s *RuleSet) Lines() (lines []string) {
	lines = make([]string, 0, s.Len())
	if s == nil {
		return lines
	}

	for _, r := range s.rules {
		lines = append(lines, r.Text())
	}

	return lines
}

// Text returns the rules joined with sep.
func (s *RuleSet) Text(sep string) (text string) {
	return strings.Join(s.Lines(), sep)
}

// Match returns the first rule of the set matching r.  Comment rules are
// skipped if skipComments is true.  s may be nil.
func (s *RuleSet) Match(r *rules.Request, skipComments bool) (rule *rules.Rule, ok bool) {
	if s == nil {
		return nil, false
	}

	for _, rule = range s.rules {
		if rule.IsEmpty() || (skipComments && rule.IsComment()) {
			continue
		}

		if rule.Match(r) {
			return rule, true
		}
	}

	return nil, false
}
