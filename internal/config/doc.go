// Package config handles configuration loading for ragchat.
//
// # Configuration File
//
// Locations, in order:
//
//  1. The --config flag
//  2. Path from the RAGCHAT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/ragchat/config.yaml (~/.config when unset)
//
// A missing file at the last location is not an error; Default() is used.
// Files ending in .toml are parsed as TOML, everything else as YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	answerer:
//	  jwt_secret: "${RAGCHAT_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Example
//
//	database:
//	  driver: "bolt"               # bolt, sqlite, sqlite3
//	  path: "/var/lib/ragchat/chat.db" # default $XDG_DATA_HOME/ragchat/chat.db
//
//	answerer:
//	  provider: "http"             # http or openai
//	  base_url: "http://localhost:8081"
//	  timeout: "60s"
//	  requests_per_second: 0       # 0 disables pacing
//	  jwt_secret: ""               # sign requests when set
//	  openai:
//	    api_key: "${OPENAI_API_KEY}"
//	    model: "gpt-3.5-turbo"
//
//	server:                        # fake-answerer
//	  http_addr: "localhost:8081"
//	  jwt_secret: ""
//	  dedupe_ttl: "10m"
//
//	logging:
//	  level: "info"                # debug, info, warn, error
//	  format: "text"               # text or json
//
// Durations use time.ParseDuration syntax.
package config
