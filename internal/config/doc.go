// Package config loads relnote configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags, passed to [Load] as an overrides map keyed by config key
//  2. Environment variables (RELEASE_LLM_*, GITHUB_TOKEN / GH_TOKEN,
//     GITHUB_API_URL, RELNOTE_*), with a .env file in the working directory
//     loaded first and never overriding real variables
//  3. Config file (--config, else config.{yaml,toml,json} in [ConfigDir])
//  4. Built-in defaults
//
// Environment values are normalized with [NormalizeEnvValue] because CI
// secret stores often carry a pasted NAME= prefix or stray quotes.
package config
