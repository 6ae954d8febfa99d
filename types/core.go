package types

import (
	"encoding/json"
	"time"
)

const (
	// ConfigFileName is the per-directory lint configuration file.
	ConfigFileName = ".htmllintrc"
	// PackageRootMarker marks the project root the config lookup stops at.
	PackageRootMarker = "package.json"
	// ConfigSection is the settings section requested from the client.
	ConfigSection = "htmllint"
	// Source is reported as the source of every diagnostic.
	Source = "htmllint"

	DefaultMaxNumberOfProblems = 1000
)

// Config is the payload of initializationOptions and workspace/didChangeConfiguration.
type Config struct {
	Htmllint     *Settings     `json:"htmllint,omitempty"`
	LintDebounce time.Duration `json:"lintDebounce,omitempty"`
}

type RangeMode string

const (
	// RangeCharacter highlights the single reported character.
	RangeCharacter RangeMode = "character"
	// RangeLine highlights the whole reported line.
	RangeLine RangeMode = "line"
)

type Settings struct {
	MaxNumberOfProblems int       `json:"maxNumberOfProblems"`
	RangeMode           RangeMode `json:"rangeMode,omitempty"`
	// warning: this will be subtracted from the (already shifted) line reported by the engine
	LintOffset int `json:"lintOffset,omitempty"`
	// defaults to true if not provided; false keeps the previous diagnostics on failure
	ReportErrors *bool `json:"reportErrors,omitempty"`
}

// UnmarshalJSON fills the fields missing from b with their defaults.
func (s *Settings) UnmarshalJSON(b []byte) error {
	type plain Settings
	p := plain(DefaultSettings())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Settings(p)
	return nil
}

func DefaultSettings() Settings {
	return Settings{
		MaxNumberOfProblems: DefaultMaxNumberOfProblems,
		RangeMode:           RangeCharacter,
	}
}

// LintConfig is the parsed content of a .htmllintrc file: rule name to rule configuration.
type LintConfig map[string]any

// IssueData holds the code specific details of an issue. Which fields are set depends on the code.
type IssueData struct {
	Attribute string `json:"attribute,omitempty"`
	Format    string `json:"format,omitempty"`
	Value     string `json:"value,omitempty"`
	Chars     string `json:"chars,omitempty"`
	Desc      string `json:"desc,omitempty"`
	Part      string `json:"part,omitempty"`
	Width     int    `json:"width,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Issue is a single rule violation reported by the engine. Line and Column are 0-based.
type Issue struct {
	Code   string    `json:"code"`
	Rule   string    `json:"rule"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
	Data   IssueData `json:"data"`
	Msg    string    `json:"msg,omitempty"`
}

type EventType int

const (
	EventTypeChange EventType = iota
	EventTypeSave
	EventTypeOpen
	EventTypeConfigFileChange
	EventTypeSettingsChange
)

func (e EventType) String() string {
	switch e {
	case EventTypeChange:
		return "change"
	case EventTypeSave:
		return "save"
	case EventTypeOpen:
		return "open"
	case EventTypeConfigFileChange:
		return "config-file-change"
	case EventTypeSettingsChange:
		return "settings-change"
	default:
		return "unknown"
	}
}
