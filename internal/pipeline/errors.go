package pipeline

import "fmt"

// ConfigurationError reports a run that cannot start: the groups, rules
// and model disagree, or the executor settings are invalid. It is always
// returned before the first chunk is read.
type ConfigurationError struct {
	Group  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Group == "" {
		return "pipeline: configuration: " + e.Reason
	}
	return fmt.Sprintf("pipeline: configuration: group %s: %s", e.Group, e.Reason)
}

func configErr(group, format string, args ...any) error {
	return &ConfigurationError{Group: group, Reason: fmt.Sprintf(format, args...)}
}
