// Package config handles loading and validating explorer configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The configuration file is optional. An interactive session with no file
// runs entirely on defaults plus whatever the command-line flags override.
//
// Usage:
//
//	cfg, err := config.Load("explorer.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Version)
package config
