// Package config loads inboxassist settings from defaults, an optional YAML
// file, a .env file and INBOXASSIST_* environment variables, in that order.
package config
