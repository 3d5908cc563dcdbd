package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDev, ParseMode(""))
	assert.Equal(t, ModeDev, ParseMode("dev"))
	assert.Equal(t, ModeProd, ParseMode("prod"))
	assert.Equal(t, ModeProd, ParseMode("staging"))
}

func TestForMode(t *testing.T) {
	dev := ForMode(ModeDev)
	assert.Equal(t, "127.0.0.1:8000", dev.HTTPAddr)
	assert.Equal(t, "127.0.0.1:443", dev.HTTPSAddr)
	assert.Equal(t, "https://127.0.0.1:443", dev.RedirectURL)
	assert.Equal(t, "cert_local/cert.pem", dev.CertFile)
	assert.Equal(t, "cert_local/key.pem", dev.KeyFile)
	assert.True(t, dev.TLS)

	prod := ForMode(ModeProd)
	assert.Equal(t, "0.0.0.0:80", prod.HTTPAddr)
	assert.Equal(t, "0.0.0.0:443", prod.HTTPSAddr)
	assert.Equal(t, "https://badang.xyz", prod.RedirectURL)
	assert.Equal(t, "/etc/letsencrypt/live/badang.xyz/fullchain.pem", prod.CertFile)
	assert.Equal(t, "/etc/letsencrypt/live/badang.xyz/privkey.pem", prod.KeyFile)

	require.NoError(t, dev.Validate())
	require.NoError(t, prod.Validate())
}

func TestApply(t *testing.T) {
	off := false
	s := ForMode(ModeDev).Apply(Overrides{HTTPAddr: ":9000", TLS: &off})
	assert.Equal(t, ":9000", s.HTTPAddr)
	assert.Equal(t, "127.0.0.1:443", s.HTTPSAddr, "unset fields keep the preset")
	assert.False(t, s.TLS)

	s = ForMode(ModeProd).Apply(Overrides{RedirectURL: "https://example.org"})
	assert.Equal(t, "https://example.org", s.RedirectURL)
	assert.True(t, s.TLS)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		server  Server
		wantErr string
	}{
		{
			name:    "empty http address",
			server:  Server{},
			wantErr: "http address is empty",
		},
		{
			name:    "bad http address",
			server:  Server{HTTPAddr: "localhost"},
			wantErr: "http address",
		},
		{
			name:   "plain http only",
			server: Server{HTTPAddr: ":8080"},
		},
		{
			name:    "tls without cert",
			server:  Server{HTTPAddr: ":80", HTTPSAddr: ":443", RedirectURL: "https://x.test", TLS: true},
			wantErr: "cert and a key",
		},
		{
			name: "tls with http redirect",
			server: Server{
				HTTPAddr: ":80", HTTPSAddr: ":443", RedirectURL: "http://x.test",
				CertFile: "c", KeyFile: "k", TLS: true,
			},
			wantErr: "absolute https URL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.server.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Empty(t, ParseList(""))
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, ParseList(" https://a.test, ,https://b.test,"))
}
