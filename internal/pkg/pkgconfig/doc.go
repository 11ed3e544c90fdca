// Package pkgconfig provides a small abstraction for reading configuration values.
//
// Modules depend on the Config interface rather than on Viper directly, so
// tests can hand them a fake and the service can read values from a YAML file
// with environment overrides.
//
// Besides the usual scalar getters it offers a few decoding helpers: base64
// binaries, comma separated arrays, "k:v" maps and Go durations.
package pkgconfig
