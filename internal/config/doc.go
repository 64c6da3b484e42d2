// Package config loads and validates the YAML configuration shared by the
// germitrack CLI and the germitrackd server. Each binary reads its own
// top-level section (analysis: or server:) and ignores the other. Secrets
// (API keys, webhook URLs) are never stored in the file; the config names
// environment variables and resolves them at use time.
package config
