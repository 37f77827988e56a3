// Package config loads docprobe settings from defaults, a YAML file, the
// frontend's dotenv file, environment variables and command-line flags, and
// validates the result.
package config
