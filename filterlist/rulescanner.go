package filterlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/traychrome/adblock/rules"
)

// RuleScanner implements an interface for reading filtering rules.
type RuleScanner struct {
	// reader is the underlying scanner that reads filtering rules.
	reader *bufio.Scanner

	// currentRule is the last read rule.
	currentRule *rules.Rule

	// listID is the ID of the filter list.
	listID int

	// lineNum is the number of lines read so far.
	lineNum int

	// currentRuleLine is the 1-based line number of the current rule.
	currentRuleLine int
}

// NewRuleScanner returns a new RuleScanner to read from r.  r is the reader
// with rules, one per line; listID is the ID of the filter list the rules
// belong to.
func NewRuleScanner(r io.Reader, listID int) (s *RuleScanner) {
	reader := bufio.NewScanner(r)
	reader.Split(scanLines)

	return &RuleScanner{
		reader: reader,
		listID: listID,
	}
}

// Scan advances the RuleScanner to the next rule, which will then be
// available through the Rule method.  It returns false when the scan stops,
// either by reaching the end of the input or an error.  Blank lines are
// skipped, comments are not: they are kept so that the list evaluating them
// decides whether to skip them.
func (s *RuleScanner) Scan() (ok bool) {
	for s.reader.Scan() {
		s.lineNum++

		line := strings.TrimSpace(s.reader.Text())
		if line == "" {
			continue
		}

		s.currentRule = rules.NewRule(line)
		s.currentRuleLine = s.lineNum

		return true
	}

	return false
}

// Rule returns the most recent rule generated by a call to Scan and the line
// number of this rule's text.
func (s *RuleScanner) Rule() (r *rules.Rule, line int) {
	return s.currentRule, s.currentRuleLine
}

// ListID returns the ID of the filter list being scanned.
func (s *RuleScanner) ListID() (id int) {
	return s.listID
}

// Err returns the first non-EOF error that was encountered by the scanner.
func (s *RuleScanner) Err() (err error) {
	return s.reader.Err()
}

// scanLines is a bufio.SplitFunc that splits on "\n", "\r\n" and a bare "\r".
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i, c := range data {
		switch c {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}

				return i + 1, data[:i], nil
			} else if atEOF {
				return i + 1, data[:i], nil
			}

			// Request more data to see if the next byte is '\n'.
			return 0, nil, nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
