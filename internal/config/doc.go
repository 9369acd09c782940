// Package config loads and validates the server configuration from a YAML
// file. Secrets (API keys, SMTP and SMS credentials, webhook URLs) are never
// stored in the file itself; the file names environment variables that hold
// them, resolved at read time.
package config
