// Package config loads and validates the sync job configuration.
//
// Configuration is a YAML file with ${VAR} environment substitution,
// so credentials (database URL or password) live in the environment
// and never in the file itself. Defaults cover everything except the
// database connection.
package config
