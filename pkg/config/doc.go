// Package config loads typed configuration structs from environment
// variables, with optional .env file support for development.
//
// Field mapping uses `env` struct tags; see the caarlos0/env documentation
// for tag syntax. The Redis status store and the Paddle store adapter load
// their configuration through this package.
package config
