// Package config loads bankdash configuration.
//
// Values come from three layers, later ones winning:
//
//	1. Default()
//	2. config.yaml (config.yaml, configs/config.yaml, ... or an explicit path)
//	3. BANKDASH_* environment variables
//
// Nested sections map onto underscored names:
//
//	BANKDASH_SERVER_PORT=9090
//	BANKDASH_LOGGING_OUTPUT=console
//	BANKDASH_ANALYSIS_MAX_DATASETS=32
//	BANKDASH_SECURITY_ALLOWED_ORIGINS=http://a.example,http://b.example
//
// Paths are resolved against the executable directory, never the working
// directory, by GetPaths.
package config
