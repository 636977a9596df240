package locator

import "regexp"

// Patterns for values that change between runs and therefore make a
// locator unreliable.
var (
	datePattern = regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}:\d{2}(:\d{2})?`)
	uuidPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	// Runs of 6+ consecutive digits look like random or sequential ids.
	digitRunPattern = regexp.MustCompile(`\d{6,}`)
)

// DynamicFlags records which volatile patterns a value matched.
type DynamicFlags struct {
	HasDate     bool `json:"hasDate,omitempty"`
	HasUUID     bool `json:"hasUUID,omitempty"`
	HasDigitRun bool `json:"hasDigitRun,omitempty"`
}

// Any reports whether any dynamic pattern matched.
func (f DynamicFlags) Any() bool {
	return f.HasDate || f.HasUUID || f.HasDigitRun
}

// DetectDynamic flags a value as dynamic if it contains a date/time,
// a UUID, or a long digit run.
func DetectDynamic(value string) DynamicFlags {
	return DynamicFlags{
		HasDate:     datePattern.MatchString(value),
		HasUUID:     uuidPattern.MatchString(value),
		HasDigitRun: digitRunPattern.MatchString(value),
	}
}
