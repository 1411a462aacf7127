// Package credentials reads the registry-client-defined credentials
// file: a Docker-config-style JSON document mapping a registry host
// (scheme stripped) to a base64-encoded "user:password" auth string.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Credentials holds the username/password pair read for one registry
// host. Both fields are empty for anonymous registries.
type Credentials struct {
	Username string
	Password string
}

type dockerConfig struct {
	Auths map[string]struct {
		Auth string `json:"auth"`
	} `json:"auths"`
}

// TrimProtocol strips a leading http:// or https:// scheme, the same
// normalization the registry client applies before using a host as a
// credentials-file lookup key.
func TrimProtocol(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return host
}

// Read loads credentials for host from the file at path. A missing
// entry for host, or an empty path, yields a zero Credentials (both
// fields empty) rather than an error: anonymous registries are
// expected to have no entry.
func Read(path string, host string) (*Credentials, error) {
	if path == "" {
		return &Credentials{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: reading %s: %w", path, err)
	}

	var cfg dockerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("credentials: parsing %s: %w", path, err)
	}

	entry, ok := cfg.Auths[TrimProtocol(host)]
	if !ok {
		return &Credentials{}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(entry.Auth)
	if err != nil {
		return nil, fmt.Errorf("credentials: decoding auth for %s: %w", host, err)
	}

	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, fmt.Errorf("credentials: malformed auth entry for %s", host)
	}

	return &Credentials{Username: user, Password: pass}, nil
}
