// Package credentials discovers which Encapsia host to talk to and with
// which token. Discovery order: the --host flag (a label into the
// credentials file, or a URL), then the ENCAPSIA_HOST environment
// variable, then ENCAPSIA_URL, with tokens coming from the credentials
// file or ENCAPSIA_TOKEN.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// HostEnvVar names the host label or URL when no --host flag is given.
	HostEnvVar = "ENCAPSIA_HOST"
	// URLEnvVar names the server URL directly, consulted after HostEnvVar.
	URLEnvVar = "ENCAPSIA_URL"
	// TokenEnvVar supplies the token when the host is given as a URL.
	TokenEnvVar = "ENCAPSIA_TOKEN"
)

// Credentials is a resolved host/token pair.
type Credentials struct {
	// Label is the credentials-file key the pair came from, or "" when
	// resolved from environment variables.
	Label string
	URL   string
	Token string
}

type fileEntry struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Path returns the location of the credentials file,
// ~/.encapsia/credentials.toml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory failed: %w", err)
	}
	return filepath.Join(home, ".encapsia", "credentials.toml"), nil
}

// Discover resolves credentials for the given host argument. An empty host
// falls back to ENCAPSIA_HOST, then ENCAPSIA_URL (always URL-form). A host
// containing a scheme or a dot is treated as a URL and paired with
// ENCAPSIA_TOKEN; anything else is a label looked up in the credentials
// file.
func Discover(host string) (*Credentials, error) {
	if host == "" {
		host = os.Getenv(HostEnvVar)
	}
	if host == "" {
		if url := os.Getenv(URLEnvVar); url != "" {
			token := os.Getenv(TokenEnvVar)
			if token == "" {
				return nil, fmt.Errorf("%s is set but %s is not", URLEnvVar, TokenEnvVar)
			}
			return &Credentials{URL: normalizeURL(url), Token: token}, nil
		}
		return nil, fmt.Errorf("no host given: use --host or set %s", HostEnvVar)
	}

	if looksLikeURL(host) {
		token := os.Getenv(TokenEnvVar)
		if token == "" {
			return nil, fmt.Errorf("host %q is a URL but %s is not set", host, TokenEnvVar)
		}
		return &Credentials{URL: normalizeURL(host), Token: token}, nil
	}

	path, err := Path()
	if err != nil {
		return nil, err
	}
	return lookup(path, host)
}

func lookup(path, label string) (*Credentials, error) {
	var entries map[string]fileEntry
	if _, err := toml.DecodeFile(path, &entries); err != nil {
		return nil, fmt.Errorf("reading credentials file %s failed: %w", path, err)
	}
	entry, ok := entries[label]
	if !ok {
		return nil, fmt.Errorf("no credentials for host %q in %s", label, path)
	}
	if entry.Token == "" {
		return nil, fmt.Errorf("credentials for host %q in %s have no token", label, path)
	}
	url := entry.URL
	if url == "" {
		url = "https://" + label + ".encapsia.com"
	}
	return &Credentials{Label: label, URL: normalizeURL(url), Token: entry.Token}, nil
}

func looksLikeURL(host string) bool {
	return strings.Contains(host, "://") || strings.Contains(host, ".")
}

func normalizeURL(url string) string {
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	return strings.TrimRight(url, "/")
}
