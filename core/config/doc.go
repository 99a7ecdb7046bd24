// Package config loads environment configuration into typed structs.
//
// A .env file in the working directory is loaded once on first use, then
// caarlos0/env parses struct tags. Each configuration type is parsed once and
// cached; later calls copy the cached value.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning the error and is meant for process startup.
package config
