// Package config provides configuration management for objstore.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of each
// section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP port, API key and request body limit
//   - Storage: provider, endpoint, credentials and bucket settings
//   - Log: Logging level and format
//
// Environment variables use the upper-cased key path, e.g. STORAGE_BUCKET or
// SERVER_API_KEY.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Bucket)
package config
