// Package config loads stream client configuration from YAML files.
//
// Files may reference environment variables with ${VAR} syntax; they are
// expanded before parsing. Load tiers: Load (parse only), LoadWithDefaults
// (parse + fill defaults), LoadAndValidate (parse + defaults + validation).
package config
