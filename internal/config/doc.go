// Package config provides configuration management for seoscan.
//
// Configuration flows from three sources, in increasing precedence:
// built-in defaults, the optional .seoscan YAML file (per-site
// overrides), and CLI flags. The resulting Config struct is passed
// through the application via dependency injection rather than global
// state.
package config
