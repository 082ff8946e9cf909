// Package filterlist contains the storage of filtering rules: ordered rule
// sets, the sources they are read from and the built-in default list.
package filterlist

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
)

// RuleList represents a set of filtering rules.
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() (id int)

	// NewScanner creates a new scanner that reads the list contents.
	NewScanner() (s *RuleScanner)

	// Close closes the underlying rule list.
	Close() (err error)
}

// StringRuleList represents a string-based rule list.
type StringRuleList struct {
	// RulesText is the string with filtering rules (one per line).
	RulesText string

	// ID is the rule list ID.
	ID int
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// GetID implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) GetID() (id int) {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) NewScanner() (sc *RuleScanner) {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID)
}

// Close implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) Close() (err error) {
	return nil
}

// FileRuleList represents a file-based rule list.  The file stays open until
// Close is called, each scanner reads it from the beginning.
type FileRuleList struct {
	// mu protects file.
	mu *sync.Mutex

	// file is the open filter-list file, nil after Close.
	file *os.File

	// path is the path to the file.
	path string

	// id is the rule list ID.
	id int
}

// type check
var _ RuleList = (*FileRuleList)(nil)

// NewFileRuleList opens the file at path and returns a rule list reading
// it.
func NewFileRuleList(id int, path string) (l *FileRuleList, err error) {
	// #nosec G304 -- Trust the paths to the filter lists given by the user.
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "opening rule list %d: %w", id)
	}

	return &FileRuleList{
		mu:   &sync.Mutex{},
		file: f,
		path: path,
		id:   id,
	}, nil
}

// GetID implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) GetID() (id int) {
	return l.id
}

// Path returns the path to the underlying file.
func (l *FileRuleList) Path() (path string) {
	return l.path
}

// NewScanner implements the [RuleList] interface for *FileRuleList.  A
// scanner of a closed list reads nothing.
func (l *FileRuleList) NewScanner() (sc *RuleScanner) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return NewRuleScanner(strings.NewReader(""), l.id)
	}

	// Use a section reader so that scanners never share the file offset.
	r := io.NewSectionReader(l.file, 0, 1<<62)

	return NewRuleScanner(r, l.id)
}

// Close implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) Close() (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err = l.file.Close()
	l.file = nil

	return errors.Annotate(err, "closing rule list %d: %w", l.id)
}
