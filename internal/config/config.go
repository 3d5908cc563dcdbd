// Package config holds the web server presets for each deployment mode.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// ParseMode maps "" and "dev" to ModeDev. Anything else is production.
func ParseMode(s string) Mode {
	if s == "" || s == string(ModeDev) {
		return ModeDev
	}
	return ModeProd
}

// Server configures the HTTP and HTTPS listeners.
type Server struct {
	Mode Mode
	// HTTPAddr redirects to RedirectURL when TLS is on, otherwise it serves the app.
	HTTPAddr    string
	HTTPSAddr   string
	RedirectURL string
	CertFile    string
	KeyFile     string
	TLS         bool
}

// ForMode returns the preset for mode.
func ForMode(mode Mode) Server {
	if mode == ModeDev {
		return Server{
			Mode:        ModeDev,
			HTTPAddr:    "127.0.0.1:8000",
			HTTPSAddr:   "127.0.0.1:443",
			RedirectURL: "https://127.0.0.1:443",
			CertFile:    "cert_local/cert.pem",
			KeyFile:     "cert_local/key.pem",
			TLS:         true,
		}
	}
	return Server{
		Mode:        ModeProd,
		HTTPAddr:    "0.0.0.0:80",
		HTTPSAddr:   "0.0.0.0:443",
		RedirectURL: "https://badang.xyz",
		CertFile:    "/etc/letsencrypt/live/badang.xyz/fullchain.pem",
		KeyFile:     "/etc/letsencrypt/live/badang.xyz/privkey.pem",
		TLS:         true,
	}
}

// Overrides replaces preset fields. Empty strings keep the preset value.
type Overrides struct {
	HTTPAddr    string
	HTTPSAddr   string
	RedirectURL string
	CertFile    string
	KeyFile     string
	// TLS is applied only when non-nil.
	TLS *bool
}

func (s Server) Apply(o Overrides) Server {
	s.HTTPAddr = lo.CoalesceOrEmpty(o.HTTPAddr, s.HTTPAddr)
	s.HTTPSAddr = lo.CoalesceOrEmpty(o.HTTPSAddr, s.HTTPSAddr)
	s.RedirectURL = lo.CoalesceOrEmpty(o.RedirectURL, s.RedirectURL)
	s.CertFile = lo.CoalesceOrEmpty(o.CertFile, s.CertFile)
	s.KeyFile = lo.CoalesceOrEmpty(o.KeyFile, s.KeyFile)
	if o.TLS != nil {
		s.TLS = *o.TLS
	}
	return s
}

func (s Server) Validate() error {
	var errs []error
	if err := validAddr("http address", s.HTTPAddr); err != nil {
		errs = append(errs, err)
	}
	if s.TLS {
		if err := validAddr("https address", s.HTTPSAddr); err != nil {
			errs = append(errs, err)
		}
		if s.CertFile == "" || s.KeyFile == "" {
			errs = append(errs, errors.New("tls requires both a cert and a key file"))
		}
		u, err := url.Parse(s.RedirectURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, fmt.Errorf("redirect url %q must be an absolute https URL", s.RedirectURL))
		}
	}
	return errors.Join(errs...)
}

func validAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is empty", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q: %w", name, addr, err)
	}
	return nil
}

// ParseList splits a comma-separated flag value, dropping blanks.
func ParseList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
