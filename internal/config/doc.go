// Package config loads the authentication handler's configuration.
//
// Configuration is read from a single YAML file, by default
// ~/.config/authhandler/config.yaml. A missing file yields the defaults.
// Environment variables prefixed with AUTHHANDLER_ override file values, for
// example AUTHHANDLER_LOG_LEVEL=debug or AUTHHANDLER_WALLET_PASSPHRASE.
//
// # Example
//
//	logging:
//	  level: info
//	  format: text
//	wallet:
//	  path: ~/.config/authhandler/wallet.json
//	  keyFile: ~/.config/authhandler/wallet.key
//	trust:
//	  rulesFile: ~/.config/authhandler/trust-rules.json
//	  sessionTTL: 30m
//	prompt:
//	  command: zenity
//	oauth2:
//	  clientID: "0000000048093D1A"
//	  authURL: https://login.live.com/oauth20_authorize.srf
//	  tokenURL: https://login.live.com/oauth20_token.srf
//	  scopes: [wl.messenger, wl.offline_access]
//	daemon:
//	  idleTimeout: 5m
//	  handlers:
//	    sasl: true
//	    tls: true
//	    captcha: true
//	    conference: true
package config
