package google

import (
	"crypto/tls"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultRedirectURL is the loopback address Google redirects to after
// consent. Nothing has to listen there; the user copies the URL back.
const DefaultRedirectURL = "http://localhost"

// OAuthSettings are the client credentials of the Google Cloud project.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// Endpoint overrides google.Endpoint, for tests.
	Endpoint *oauth2.Endpoint
}

// NewOAuthConfig returns the OAuth2 configuration for Gmail access.
func NewOAuthConfig(s OAuthSettings) *oauth2.Config {
	redirect := s.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	scopes := s.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	endpoint := google.Endpoint
	if s.Endpoint != nil {
		endpoint = *s.Endpoint
	}
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}
}

// NewHTTPClient returns the base client Google API calls are layered on.
// It is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = false
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// DataDir returns the per-user directory for local state such as the SQLite
// token database.
func DataDir() string {
	return filepath.Join(userCacheDir(), "inboxassist")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
