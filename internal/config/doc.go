// Package config loads, normalizes, and validates pulpit's TOML
// configuration. Defaults cover everything except the OpenAI API key, which
// can arrive via the environment or a .env file.
package config
