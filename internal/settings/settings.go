// Package settings contains the persistent settings of the ad blocker.
package settings

import (
	"os"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/go-playground/validator/v10"
	"github.com/traychrome/adblock"
	"github.com/traychrome/adblock/filterlist"
	"gopkg.in/yaml.v3"
)

// Settings is the settings file.
type Settings struct {
	AdBlock *AdBlock `yaml:"adblock" validate:"required"`
}

// AdBlock is the ad-block section of the settings file.
type AdBlock struct {
	// BlockRules are the block rules entered by the user.
	BlockRules []string `yaml:"block_rules"`

	// AllowRules are the allow rules entered by the user.
	AllowRules []string `yaml:"allow_rules"`

	// BlockLists are the paths to filter-list files with block rules.  Their
	// rules follow BlockRules.
	BlockLists []string `yaml:"block_lists" validate:"dive,file"`

	// AllowLists are the paths to filter-list files with allow rules.  Their
	// rules follow AllowRules.
	AllowLists []string `yaml:"allow_lists" validate:"dive,file"`

	// Enabled is true if requests are filtered.
	Enabled bool `yaml:"enabled"`

	// LoadDefaults is true if the built-in rules precede the block rules.
	LoadDefaults bool `yaml:"load_defaults"`
}

// Default returns the settings of a fresh installation: filtering is disabled
// and the built-in rules are loaded.
func Default() (s *Settings) {
	return &Settings{
		AdBlock: &AdBlock{
			LoadDefaults: true,
		},
	}
}

// Load reads and validates the settings file.  If the file does not exist,
// the default settings are returned.
func Load(path string) (s *Settings, err error) {
	// #nosec G304 -- Trust the path given by the user.
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	} else if err != nil {
		return nil, errors.Annotate(err, "reading settings: %w")
	}

	s = &Settings{}
	err = yaml.Unmarshal(b, s)
	if err != nil {
		return nil, errors.Annotate(err, "parsing settings %q: %w", path)
	}

	err = s.Validate()
	if err != nil {
		return nil, errors.Annotate(err, "settings %q: %w", path)
	}

	return s, nil
}

// Validate returns an error if s is not valid, for example if a filter list
// does not exist.
func (s *Settings) Validate() (err error) {
	if s == nil {
		return errors.Error("no settings")
	}

	return validator.New(validator.WithRequiredStructEnabled()).Struct(s)
}

// Save writes s to the file at path.
func (s *Settings) Save(path string) (err error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return errors.Annotate(err, "encoding settings: %w")
	}

	err = os.WriteFile(path, b, 0o600)
	if err != nil {
		return errors.Annotate(err, "writing settings: %w")
	}

	return nil
}

// Apply replaces the rules of e and then enables or disables it.  Rules are
// loaded in order: the built-in rules if requested, the rules from the
// settings and then the rules from the filter lists.  On error, e is not
// changed.
func (s *Settings) Apply(e *adblock.Engine) (err error) {
	ab := s.AdBlock
	if ab == nil {
		return errors.Error("no adblock settings")
	}

	var block []string
	if ab.LoadDefaults {
		block = filterlist.DefaultBlockRules()
	}

	block = append(block, ab.BlockRules...)
	block, err = appendLists(block, ab.BlockLists)
	if err != nil {
		return errors.Annotate(err, "block lists: %w")
	}

	allow, err := appendLists(slices.Clone(ab.AllowRules), ab.AllowLists)
	if err != nil {
		return errors.Annotate(err, "allow lists: %w")
	}

	e.SetBlockRules(block)
	e.SetAllowRules(allow)
	e.SetEnabled(ab.Enabled)

	return nil
}

// appendLists appends the rules from the filter-list files at paths to lines.
func appendLists(lines, paths []string) (res []string, err error) {
	if len(paths) == 0 {
		return lines, nil
	}

	rs, err := filterlist.LoadFiles(paths...)
	if err != nil {
		return nil, err
	}

	return append(lines, rs.Lines()...), nil
}

// FromEngine returns the settings describing the current state of e.  The
// returned settings contain all rules inline, so they do not refer to any
// filter lists.
func FromEngine(e *adblock.Engine) (s *Settings) {
	return &Settings{
		AdBlock: &AdBlock{
			BlockRules: e.BlockRules(),
			AllowRules: e.AllowRules(),
			Enabled:    e.Enabled(),
		},
	}
}
