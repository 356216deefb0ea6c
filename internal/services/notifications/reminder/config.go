package reminder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the injected rule configuration for both reminder domains.
type Rules struct {
	Attendance AttendanceRule `yaml:"attendance"`
	Calendar   CalendarRule   `yaml:"calendar"`
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		Attendance: DefaultAttendanceRule(),
		Calendar:   DefaultCalendarRule(),
	}
}

// LoadRules reads rules from a YAML file. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		rules := DefaultRules()
		if err := rules.Validate(); err != nil {
			return Rules{}, err
		}
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read reminder rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("load reminder rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules overlays YAML onto the defaults: omitted keys keep their default
// values and a present windows list replaces the default windows.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("decode reminder rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks both rule sets.
func (r *Rules) Validate() error {
	if err := r.Attendance.Validate(); err != nil {
		return err
	}
	return r.Calendar.Validate()
}
