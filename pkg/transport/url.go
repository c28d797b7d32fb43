package transport

import (
	"fmt"
	"net/url"
	"strconv"
)

// ParsedURL is the subset of a URL the transport needs to open a raw
// connection: scheme, host, port, path and query. Unlike net/url.URL we
// resolve the default port eagerly since every caller needs it.
type ParsedURL struct {
	Scheme string
	Host   string
	Port   string
	Path   string
	Query  string
}

// IsHTTPS reports whether the scheme requires a TLS connection.
func (p ParsedURL) IsHTTPS() bool { return p.Scheme == "https" }

// RequestTarget renders the path+query portion of an HTTP/1.1 request line.
func (p ParsedURL) RequestTarget() string {
	if p.Path == "" {
		return "/"
	}
	if p.Query == "" {
		return p.Path
	}
	return p.Path + "?" + p.Query
}

// ParseURL accepts http/https URLs and extracts host, port (defaulting to
// 80/443), path (defaulting to "/"), and query, per §4.2.
func ParseURL(raw string) (ParsedURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ParsedURL{}, fmt.Errorf("transport: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ParsedURL{}, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return ParsedURL{}, fmt.Errorf("transport: missing host in %q", raw)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	} else if _, err := strconv.Atoi(port); err != nil {
		return ParsedURL{}, fmt.Errorf("transport: invalid port %q", port)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return ParsedURL{
		Scheme: u.Scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Query:  u.RawQuery,
	}, nil
}
