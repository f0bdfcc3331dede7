// Package config provides configuration loading for the sharedspace server.
//
// The config package handles:
//   - Built-in defaults for every setting
//   - Loading overrides from a YAML file
//   - Environment overrides with the SHAREDSPACE_ prefix
//   - Validation of the merged result
//
// Configuration Format:
//
//	server:
//	  host: ""
//	  port: 8080
//	  static_dir: static
//	relay:
//	  send_queue_limit: 256
//	  max_message_size: 4096
//	  write_wait: 10s
//	  pong_wait: 60s
//	world:
//	  arena:
//	    min: {x: -25, y: 0, z: -25}
//	    max: {x: 25, y: 0, z: 25}
//	  ordering: overwrite
//	log:
//	  level: info
//	  file: ""
//
// Environment variables follow the section and key names, for example
// SHAREDSPACE_SERVER_PORT or SHAREDSPACE_WORLD_ORDERING. The arena is only
// configurable from the file.
//
// Usage:
//
//	cfg, err := config.Load("sharedspace.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Command-line flags are applied by the caller after Load and take precedence
// over everything here.
package config
