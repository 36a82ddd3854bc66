// Package config handles loading and validating hamhd configuration.
//
// This package manages:
//   - Environment variable overrides (the primary surface, spec §6)
//   - An optional YAML base layer named by HAMH_CONFIG_FILE
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - HAMH_HOME_ASSISTANT_ACCESS_TOKEN should be set via environment,
//     never committed to a config file
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("HAMH_CONFIG_FILE"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
