package uri

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

const testUUID = "0b3f2c1e-2d4a-4b8e-9c6f-1a2b3c4d5e6f"

func TestClassify(t *testing.T) {
	tests := []struct {
		candidate string
		expected  entity.Protocol
		ok        bool
	}{
		{"ss://YWJj@1.2.3.4:80", entity.ProtocolShadowsocks, true},
		{"trojan://" + testUUID + "@1.2.3.4:443", entity.ProtocolTrojan, true},
		{"vmess://eyJhZGQiOiIxIn0=", entity.ProtocolVMess, true},
		{"vless://" + testUUID + "@h:1?type=ws", entity.ProtocolVLess, true},
		{"vless://" + testUUID + "@h:1?Security=REALITY&pbk=x", entity.ProtocolReality, true},
		{"tuic://" + testUUID + ":pw@h:1", entity.ProtocolTuic, true},
		{"hysteria2://pw@h:1", entity.ProtocolHysteria, true},
		{"hy2://pw@h:1", entity.ProtocolHysteria, true},
		{"hysteria://pw@h:1", entity.ProtocolHysteria, true},
		{"juicity://" + testUUID + ":pw@h:1", entity.ProtocolJuicity, true},
		{"http://example.com", 0, false},
		{"no scheme", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			protocol, ok := Classify(tt.candidate)
			if ok != tt.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.candidate, ok, tt.ok)
			}
			if ok && protocol != tt.expected {
				t.Errorf("Classify(%q) = %s, want %s", tt.candidate, protocol, tt.expected)
			}
		})
	}
}

func TestNormalizeURLStyle(t *testing.T) {
	tests := []struct {
		name       string
		candidate  string
		protocol   entity.Protocol
		host       string
		port       int
		credential string
		transport  entity.Transport
		security   entity.Security
	}{
		{
			"vless ws tls",
			"vless://" + testUUID + "@example.com:443?encryption=none&Type=ws&security=tls&path=%2Fws#name",
			entity.ProtocolVLess, "example.com", 443, testUUID, entity.TransportWS, entity.SecurityTLS,
		},
		{
			"reality grpc",
			"vless://" + testUUID + "@1.2.3.4:8443?security=reality&type=grpc&pbk=abc&sid=01",
			entity.ProtocolReality, "1.2.3.4", 8443, testUUID, entity.TransportGRPC, entity.SecurityReality,
		},
		{
			"trojan ipv6 no params",
			"trojan://" + testUUID + "@[2001:db8::1]:443",
			entity.ProtocolTrojan, "2001:db8::1", 443, testUUID, entity.TransportTCP, entity.SecurityNone,
		},
		{
			"shadowsocks sip002",
			"ss://YWVzLTI1Ni1nY206cGFzcw@5.6.7.8:8388#ss",
			entity.ProtocolShadowsocks, "5.6.7.8", 8388, "YWVzLTI1Ni1nY206cGFzcw", entity.TransportTCP, entity.SecurityNone,
		},
		{
			"tuic defaults to tls",
			"tuic://" + testUUID + ":secret@tuic.example.com:10443?congestion_control=bbr&alpn=h3",
			entity.ProtocolTuic, "tuic.example.com", 10443, testUUID + ":secret", entity.TransportTCP, entity.SecurityTLS,
		},
		{
			"hysteria auth param",
			"hy2://@hy.example.com:443?auth=secret&sni=hy.example.com",
			entity.ProtocolHysteria, "hy.example.com", 443, "", entity.TransportTCP, entity.SecurityTLS,
		},
		{
			"juicity",
			"juicity://" + testUUID + ":pw@9.9.9.9:443?congestion_control=bbr",
			entity.ProtocolJuicity, "9.9.9.9", 443, testUUID + ":pw", entity.TransportTCP, entity.SecurityTLS,
		},
		{
			"unknown transport falls back to tcp",
			"vless://" + testUUID + "@example.com:80?type=quic",
			entity.ProtocolVLess, "example.com", 80, testUUID, entity.TransportTCP, entity.SecurityNone,
		},
	}

	n := NewNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := n.Normalize(tt.candidate, tt.protocol)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.candidate, err)
			}
			if d.Protocol() != tt.protocol {
				t.Errorf("Protocol = %s, want %s", d.Protocol(), tt.protocol)
			}
			if d.Host != tt.host || d.Port != tt.port {
				t.Errorf("endpoint = %s:%d, want %s:%d", d.Host, d.Port, tt.host, tt.port)
			}
			if d.Credential != tt.credential {
				t.Errorf("Credential = %q, want %q", d.Credential, tt.credential)
			}
			if d.Transport != tt.transport {
				t.Errorf("Transport = %s, want %s", d.Transport, tt.transport)
			}
			if d.Security != tt.security {
				t.Errorf("Security = %s, want %s", d.Security, tt.security)
			}
		})
	}
}

func TestNormalizeKeepsParamsInOrder(t *testing.T) {
	n := NewNormalizer()
	d, err := n.Normalize("vless://"+testUUID+"@example.com:443?sni=a.com&type=ws&host=b.com&path=%2Fx%3Fed%3D2048", entity.ProtocolVLess)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	expected := []entity.Param{
		{Key: "sni", Value: "a.com"},
		{Key: "type", Value: "ws"},
		{Key: "host", Value: "b.com"},
		{Key: "path", Value: "%2Fx%3Fed%3D2048"},
	}
	if len(d.Params) != len(expected) {
		t.Fatalf("Params = %v, want %v", d.Params, expected)
	}
	for i := range expected {
		if d.Params[i] != expected[i] {
			t.Errorf("Params[%d] = %v, want %v", i, d.Params[i], expected[i])
		}
	}
	if v, ok := d.Param("HOST"); !ok || v != "b.com" {
		t.Errorf("Param(HOST) = %q, %v", v, ok)
	}
}

func TestNormalizeVMess(t *testing.T) {
	doc := `{"v":"2","ps":"old name","Add":"vm.example.com","port":"8080","id":"` + testUUID + `","aid":0,"net":"ws","type":"none","host":"cdn.example.com","path":"/v","tls":"tls"}`
	// padding stripped on purpose
	body := base64.RawStdEncoding.EncodeToString([]byte(doc))

	d, err := NewNormalizer().Normalize("vmess://"+body, entity.ProtocolVMess)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if d.Host != "vm.example.com" || d.Port != 8080 {
		t.Errorf("endpoint = %s:%d", d.Host, d.Port)
	}
	if d.Credential != testUUID {
		t.Errorf("Credential = %q", d.Credential)
	}
	if d.Transport != entity.TransportWS || d.Security != entity.SecurityTLS {
		t.Errorf("Transport/Security = %s/%s", d.Transport, d.Security)
	}
	if len(d.Members) != 11 || d.Members[2].Key != "add" {
		t.Errorf("Members not kept in order with lower-cased keys: %v", d.Members)
	}
}

func TestNormalizeVMessNumericPort(t *testing.T) {
	doc := `{"add":"1.2.3.4","port":443,"id":"` + testUUID + `","net":"tcp"}`
	body := base64.URLEncoding.EncodeToString([]byte(doc))

	d, err := NewNormalizer().Normalize("vmess://"+body, entity.ProtocolVMess)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if d.Port != 443 {
		t.Errorf("Port = %d, want 443", d.Port)
	}
}

func TestNormalizeLegacyShadowsocks(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("aes-256-gcm:pass@1.2.3.4:8388"))

	d, err := NewNormalizer().Normalize("ss://"+body+"#legacy", entity.ProtocolShadowsocks)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if d.Host != "1.2.3.4" || d.Port != 8388 {
		t.Errorf("endpoint = %s:%d", d.Host, d.Port)
	}
	if d.Credential != base64.RawURLEncoding.EncodeToString([]byte("aes-256-gcm:pass")) {
		t.Errorf("Credential = %q", d.Credential)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		protocol  entity.Protocol
		err       error
	}{
		{"bad uuid and port", "vless://not-a-uuid@host:99999", entity.ProtocolVLess, ErrEndpoint},
		{"bad uuid", "vless://not-a-uuid@host:443", entity.ProtocolVLess, ErrCredential},
		{"missing port", "trojan://" + testUUID + "@host", entity.ProtocolTrojan, ErrEndpoint},
		{"non numeric port", "trojan://" + testUUID + "@host:abc", entity.ProtocolTrojan, ErrEndpoint},
		{"zero port", "trojan://" + testUUID + "@host:0", entity.ProtocolTrojan, ErrEndpoint},
		{"empty host", "trojan://" + testUUID + "@:443", entity.ProtocolTrojan, ErrEndpoint},
		{"protocol mismatch", "trojan://" + testUUID + "@host:443", entity.ProtocolVLess, ErrProtocol},
		{"unknown scheme", "http://host:80", entity.ProtocolVLess, ErrMalformed},
		{"vmess bad base64", "vmess://!!!!", entity.ProtocolVMess, ErrMalformed},
		{"vmess not json", "vmess://" + base64.StdEncoding.EncodeToString([]byte("hello")), entity.ProtocolVMess, ErrMalformed},
		{"vmess missing port", "vmess://" + base64.StdEncoding.EncodeToString([]byte(`{"add":"h","id":"`+testUUID+`"}`)), entity.ProtocolVMess, ErrEndpoint},
		{"vmess bad id", "vmess://" + base64.StdEncoding.EncodeToString([]byte(`{"add":"h","port":1,"id":"x"}`)), entity.ProtocolVMess, ErrCredential},
		{"tuic without uuid", "tuic://user:pw@h:1", entity.ProtocolTuic, ErrCredential},
		{"hysteria empty", "hy2://@h:1", entity.ProtocolHysteria, ErrCredential},
		{"legacy ss without method", "ss://" + base64.StdEncoding.EncodeToString([]byte(":@1.2.3.4:1")), entity.ProtocolShadowsocks, ErrCredential},
	}

	n := NewNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := n.Normalize(tt.candidate, tt.protocol)
			if err == nil {
				t.Fatalf("Normalize(%q) = %+v, want error", tt.candidate, d)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Normalize(%q) error = %v, want %v", tt.candidate, err, tt.err)
			}
		})
	}
}

func TestNormalizeBatchSkipsBadCandidates(t *testing.T) {
	candidates := []string{
		"vless://not-a-uuid@host:99999",
		"vless://" + testUUID + "@good.example.com:443",
	}

	n := NewNormalizer()
	var kept []*entity.Descriptor
	for _, c := range candidates {
		d, err := n.Normalize(c, entity.ProtocolVLess)
		if err != nil {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) != 1 || kept[0].Host != "good.example.com" {
		t.Errorf("kept = %v, want only good.example.com", kept)
	}
}
