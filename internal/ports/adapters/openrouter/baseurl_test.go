package openrouter

import "testing"

func TestCheckBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		wantErr      bool
	}{
		{name: "empty uses default", baseURL: ""},
		{name: "api host", baseURL: "https://api.openrouter.ai/"},
		{name: "relative", baseURL: "openrouter.ai", wantErr: true},
		{name: "plain http", baseURL: "http://openrouter.ai", wantErr: true},
		{name: "unknown host", baseURL: "https://evil.example", wantErr: true},
		{name: "configured host", baseURL: "https://proxy.internal:8443", allowedHosts: []string{"https://proxy.internal:8443/"}},
		{name: "userinfo", baseURL: "https://user:pw@openrouter.ai", wantErr: true},
		{name: "query", baseURL: "https://openrouter.ai?x=1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHostSet_DefaultWhenBlank(t *testing.T) {
	if got := hostSet([]string{" ", "https://", "http://"}); len(got) != len(defaultHosts) {
		t.Fatalf("expected default hosts, got %v", got)
	}
}
