// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config.yaml and FOCUS_-prefixed environment
// variables. It provides type-safe access to the settings each component
// needs while keeping configuration details out of the components.
package config
