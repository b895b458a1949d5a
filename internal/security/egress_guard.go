// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外向きリクエストで許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は厳格モードでブロックされるネットワーク範囲。
// パッケージ初期化時に1回だけパースする。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（メタデータIPを含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// EgressGuard はSefaria APIへの外向き通信に使うHTTPクライアントを構築する。
// strictが有効な場合はsafeurlでプライベート網への接続を遮断する。
type EgressGuard struct {
	strict bool
}

// NewEgressGuard はEgressGuardの新しいインスタンスを生成する。
func NewEgressGuard(strict bool) *EgressGuard {
	return &EgressGuard{strict: strict}
}

// Strict は厳格モードが有効かを返す。
func (g *EgressGuard) Strict() bool {
	return g.strict
}

// NewHTTPClient は外向き通信用のHTTPクライアントを生成する。
// timeoutが0の場合はタイムアウトを設定しない。
//
// 厳格モードではsafeurlのDialer検証により、DNS解決後のIPアドレスが
// プライベート・ループバック・リンクローカルの場合に接続を拒否する。
func (g *EgressGuard) NewHTTPClient(timeout time.Duration) *http.Client {
	if !g.strict {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateEndpoint はエンドポイントURLを静的に検証する。
// スキームとホストは常に検証し、厳格モードではIPアドレスとホスト名の
// ブロックリストとも照合する。
func (g *EgressGuard) ValidateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if !g.strict {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
