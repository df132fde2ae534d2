package poplod

// Settings holds the subset of engine behavior the CLI exposes as a YAML
// build settings file. TriThresholdFraction and BoundsBumpFactor are
// deliberately not here: they are fixed constants, not end-user
// configurable.
type Settings struct {
	// LogEnabled turns on Context progress/warning/error logging during
	// Cache and SetLevel.
	LogEnabled bool `yaml:"log_enabled"`

	// TimerEnabled turns on Context timing instrumentation.
	TimerEnabled bool `yaml:"timer_enabled"`

	// DefaultViewSize seeds View's view-relative level heuristic when the
	// caller has no better estimate yet.
	DefaultViewSize float32 `yaml:"default_view_size"`
}

// NewSettings returns a Settings struct filled with default values.
func NewSettings() Settings {
	return Settings{
		LogEnabled:      true,
		TimerEnabled:    true,
		DefaultViewSize: 100.0,
	}
}
