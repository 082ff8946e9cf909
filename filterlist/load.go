package filterlist

import (
	"github.com/AdguardTeam/golibs/errors"
)

// LoadFiles reads the filter-list files in order and returns a rule set with
// all of their rules.  List IDs are the indexes of the paths.
func LoadFiles(paths ...string) (s *RuleSet, err error) {
	lists := make([]RuleList, 0, len(paths))
	defer func() {
		for _, l := range lists {
			err = errors.WithDeferred(err, l.Close())
		}
	}()

	for i, p := range paths {
		var l *FileRuleList
		l, err = NewFileRuleList(i, p)
		if err != nil {
			return nil, errors.Annotate(err, "loading %q: %w", p)
		}

		lists = append(lists, l)
	}

	return NewRuleSetFromLists(lists...)
}

// ReadFile reads a single filter-list file and returns its rule lines.
func ReadFile(path string) (lines []string, err error) {
	s, err := LoadFiles(path)
	if err != nil {
		return nil, err
	}

	return s.Lines(), nil
}
