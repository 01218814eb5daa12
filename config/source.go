package config

// Source indicates where a configuration value came from.
type Source string

// Configuration sources, lowest priority first.
const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global" // ~/.config/interviewroom/config.yaml
	SourceLocal   Source = "local"  // .interviewroom.yaml in the working directory
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)
