package security

import (
	"testing"
	"time"
)

func TestURLGuard_ValidateURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid https", url: "https://example.com/page", wantErr: false},
		{name: "valid http", url: "http://example.com", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "javascript scheme", url: "javascript:alert(1)", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "localhost", url: "http://localhost:8080/admin", wantErr: true},
		{name: "loopback IP", url: "http://127.0.0.1/", wantErr: true},
		{name: "private IP 10.x", url: "http://10.0.0.5/", wantErr: true},
		{name: "private IP 192.168.x", url: "http://192.168.1.1/", wantErr: true},
		{name: "private IP 172.16.x", url: "http://172.16.0.1/", wantErr: true},
		{name: "cloud metadata IP", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "gcp metadata host", url: "http://metadata.google.internal/computeMetadata/", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]/", wantErr: true},
		{name: "public IP", url: "http://93.184.216.34/", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestURLGuard_NewSafeClient(t *testing.T) {
	guard := NewURLGuard()

	client := guard.NewSafeClient(5*time.Second, 1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}
