package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ErrUnknownCategory is returned by Transform for a category that was not
// present when the encoder was fitted. Callers that want graceful
// degradation check for it with errors.Is.
var ErrUnknownCategory = fmt.Errorf("unknown category")

// LabelEncoder maps a finite set of string categories to dense integer
// codes. The mapping is fixed at Fit time: codes are assigned in sorted
// category order and never change afterwards.
type LabelEncoder struct {
	ClassList []string       `json:"classes"`
	codes     map[string]int // rebuilt from ClassList, not serialized
}

// NewLabelEncoder creates an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the category universe from values. Duplicates are collapsed
// and categories are sorted so the code assignment is deterministic.
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("cannot fit encoder on empty values")
	}

	seen := make(map[string]bool, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)

	e.ClassList = classes
	e.rebuildIndex()
	return nil
}

// Transform returns the code for a fitted category. A category not seen
// at fit time yields ErrUnknownCategory.
func (e *LabelEncoder) Transform(value string) (int, error) {
	if e.codes == nil {
		e.rebuildIndex()
	}
	code, ok := e.codes[value]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
	return code, nil
}

// Inverse returns the category for a code.
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.ClassList) {
		return "", fmt.Errorf("code %d out of range [0, %d)", code, len(e.ClassList))
	}
	return e.ClassList[code], nil
}

// Classes returns the fitted categories in code order.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.ClassList))
	copy(out, e.ClassList)
	return out
}

// NumClasses returns the size of the fitted universe.
func (e *LabelEncoder) NumClasses() int {
	return len(e.ClassList)
}

func (e *LabelEncoder) rebuildIndex() {
	e.codes = make(map[string]int, len(e.ClassList))
	for i, c := range e.ClassList {
		e.codes[c] = i
	}
}

// Save writes the encoder to a JSON file.
func (e *LabelEncoder) Save(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encoder: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write encoder file: %w", err)
	}
	return nil
}

// Load reads an encoder from a JSON file.
func (e *LabelEncoder) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read encoder file: %w", err)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return fmt.Errorf("failed to unmarshal encoder: %w", err)
	}
	if len(e.ClassList) == 0 {
		return fmt.Errorf("encoder file %s has no classes", path)
	}
	e.rebuildIndex()
	return nil
}
