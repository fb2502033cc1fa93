// Package security holds the TLS settings of crudkit's HTTP adapters.
//
// A TLSConfig is usually loaded from the client section of a config file:
//
//	client:
//	  base_url: https://assets.internal
//	  tls:
//	    ca_file: /etc/crudkit/ca.pem
//	    cert_file: /etc/crudkit/client.pem
//	    key_file: /etc/crudkit/client-key.pem
//	    min_version: "1.3"
//
// Build returns nil for an empty config so the default transport settings
// stay in effect.
package security
