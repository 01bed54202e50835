package models

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TaskFile is the root of a picturefill task file. Each entry in
// Targets is executed independently, in the same way a multi-task
// target is executed by a build tool.
type TaskFile struct {
	Targets map[string]Target `yaml:"targets"`
}

// Target pairs a set of file groups with the options used to resize them.
type Target struct {
	Files   []FileGroup `yaml:"files"`
	Options Options     `yaml:"options"`
}

// FileGroup maps source paths or glob patterns to one destination
// directory.
type FileGroup struct {
	Src  []string `yaml:"src"`
	Dest string   `yaml:"dest"`
}

// Options holds per-target resize options.
type Options struct {

	// Legacy single-size options. Size and Prefix are only used when
	// Picturefill is empty. Quality is the default for every breakpoint.
	Size    *Size  `yaml:"size,omitempty"`
	Quality *int   `yaml:"quality,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`

	Picturefill []BreakpointSpec `yaml:"picturefill,omitempty"`

	// Max number of resize operations in flight. Zero means no limit.
	Concurrency int `yaml:"concurrency,omitempty"`
}

type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// BreakpointSpec describes one responsive variant to produce for every
// source image.
type BreakpointSpec struct {
	Breakpoint BreakpointID `yaml:"breakpoint,omitempty" json:"breakpoint,omitempty"`
	Prefix     string       `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Size       *Size        `yaml:"size,omitempty" json:"size,omitempty"`
	Quality    *int         `yaml:"quality,omitempty" json:"quality,omitempty"`
}

// Suffix returns the text appended to the source file stem when
// naming this breakpoint's variant.
func (b BreakpointSpec) Suffix() string {
	if b.Prefix != "" {
		return b.Prefix
	}
	return b.Breakpoint.String()
}

// BreakpointID identifies a breakpoint. Task files may declare it either
// as a string ("320px") or as a number (320).
type BreakpointID struct {
	raw     string
	numeric bool
}

func NewBreakpointID(raw string) BreakpointID {
	return BreakpointID{raw: raw}
}

func NumericBreakpointID(value int) BreakpointID {
	return BreakpointID{raw: strconv.Itoa(value), numeric: true}
}

func (id BreakpointID) String() string {
	return id.raw
}

func (id BreakpointID) IsZero() bool {
	return id.raw == ""
}

func (id BreakpointID) IsNumeric() bool {
	return id.numeric
}

func (id *BreakpointID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf(
			"line %d: breakpoint must be a string or a number",
			node.Line,
		)
	}

	id.raw = node.Value
	id.numeric = node.Tag == "!!int" || node.Tag == "!!float"
	return nil
}

func (id BreakpointID) MarshalYAML() (any, error) {
	if id.numeric {
		if v, err := strconv.Atoi(id.raw); err == nil {
			return v, nil
		}
	}
	return id.raw, nil
}

func (id BreakpointID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return []byte(strconv.Quote(id.raw)), nil
}

// TargetNames returns the declared target names in lexical order.
func (t *TaskFile) TargetNames() []string {
	names := make([]string, 0, len(t.Targets))
	for name := range t.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
