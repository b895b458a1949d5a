package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEgressGuard_NewHTTPClient_Lenient(t *testing.T) {
	guard := NewEgressGuard(false)
	client := guard.NewHTTPClient(0)

	if client.Timeout != 0 {
		t.Errorf("expected no timeout, got %v", client.Timeout)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("lenient client should reach loopback server: %v", err)
	}
	resp.Body.Close()
}

func TestEgressGuard_NewHTTPClient_StrictTimeout(t *testing.T) {
	guard := NewEgressGuard(true)
	timeout := 5 * time.Second
	client := guard.NewHTTPClient(timeout)

	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("strict client should use a custom Transport")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、厳格モードではブロックされる。
func TestEgressGuard_NewHTTPClient_StrictBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewEgressGuard(true).NewHTTPClient(5 * time.Second)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestEgressGuard_ValidateEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		url     string
		wantErr bool
	}{
		{"公開URL", true, "https://www.sefaria.org/api/calendars", false},
		{"http公開URL", true, "http://www.sefaria.org/api/calendars", false},
		{"空URL", false, "", true},
		{"スキームなし", false, "not-a-url", true},
		{"ftpスキーム", false, "ftp://example.com/data", true},
		{"fileスキーム", false, "file:///etc/passwd", true},
		{"非厳格モードはループバックを許可", false, "http://127.0.0.1:8080/api", false},
		{"非厳格モードはlocalhostを許可", false, "http://localhost/api", false},
		{"プライベートIP", true, "http://10.0.0.1/api", true},
		{"プライベートIP 192.168", true, "http://192.168.1.100/api", true},
		{"ループバック", true, "http://127.0.0.1/api", true},
		{"localhost", true, "http://LOCALHOST/api", true},
		{"メタデータIP", true, "http://169.254.169.254/latest/meta-data/", true},
		{"IPv6ループバック", true, "http://[::1]/api", true},
		{"ゼロアドレス", true, "http://0.0.0.0/api", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEgressGuard(tt.strict).ValidateEndpoint(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestEgressGuard_Strict(t *testing.T) {
	if NewEgressGuard(false).Strict() {
		t.Error("lenient guard should not report strict")
	}
	if !NewEgressGuard(true).Strict() {
		t.Error("strict guard should report strict")
	}
}
