// Package config provides configuration management for the training
// calendar dashboard.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables, optionally seeded from a .env file
//	2. A YAML configuration file (config.yaml or configs/config.yaml)
//	3. Default values from struct tags
//
// # Environment Variables
//
// All environment variables follow the pattern KALPEM_<SECTION>_<FIELD>:
//
//	KALPEM_SERVER_PORT=8050
//	KALPEM_SOURCE_USE_REMOTE=false
//	KALPEM_SOURCE_REFRESH_INTERVAL=5m
//	KALPEM_SOURCE_FIRST_LOAD_POLICY=default-only
//	KALPEM_LOGGING_LEVEL=debug
//
// # Source Policy
//
// When the remote source is disabled, Source.FirstLoadPolicy decides
// whether acquisition reads the bundled default file directly
// (default-only) or consults the local backups before it (backups-first).
//
// # Testing
//
// Use Default() for a fully populated configuration that does not touch
// the environment or the file system.
package config
