// Package config provides configuration loading, defaulting, and validation
// for Themis.
//
// Configuration is read from a YAML file, defaults are applied for any unset
// fields, and the result is validated before use. Environment variables of
// the form THEMIS_SECTION_FIELD override file values when loading with
// LoadConfigWithEnvOverrides.
package config
