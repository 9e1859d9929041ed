package entity

import "strings"

// Protocol identifies the proxy protocol family of a descriptor
type Protocol int

const (
	ProtocolShadowsocks Protocol = iota
	ProtocolTrojan
	ProtocolVMess
	ProtocolVLess
	ProtocolReality
	ProtocolTuic
	ProtocolHysteria
	ProtocolJuicity
)

// Protocols lists every supported protocol in processing order
var Protocols = []Protocol{
	ProtocolShadowsocks,
	ProtocolTrojan,
	ProtocolVMess,
	ProtocolVLess,
	ProtocolReality,
	ProtocolTuic,
	ProtocolHysteria,
	ProtocolJuicity,
}

// CredentialKind selects the validity predicate applied to a credential
type CredentialKind int

const (
	// CredentialUUID requires the whole credential to parse as a UUID
	CredentialUUID CredentialKind = iota
	// CredentialUUIDPassword requires "uuid:password" with a parsable uuid part
	CredentialUUIDPassword
	// CredentialToken accepts any non-empty token
	CredentialToken
)

// ProtocolInfo is one row of the protocol table
type ProtocolInfo struct {
	Name            string
	Code            string
	Scheme          string
	Credential      CredentialKind
	DefaultSecurity Security
}

var protocolTable = map[Protocol]ProtocolInfo{
	ProtocolShadowsocks: {Name: "shadowsocks", Code: "SS", Scheme: "ss", Credential: CredentialToken, DefaultSecurity: SecurityNone},
	ProtocolTrojan:      {Name: "trojan", Code: "TR", Scheme: "trojan", Credential: CredentialUUID, DefaultSecurity: SecurityNone},
	ProtocolVMess:       {Name: "vmess", Code: "VM", Scheme: "vmess", Credential: CredentialUUID, DefaultSecurity: SecurityNone},
	ProtocolVLess:       {Name: "vless", Code: "VL", Scheme: "vless", Credential: CredentialUUID, DefaultSecurity: SecurityNone},
	ProtocolReality:     {Name: "reality", Code: "VL", Scheme: "vless", Credential: CredentialUUID, DefaultSecurity: SecurityReality},
	ProtocolTuic:        {Name: "tuic", Code: "TU", Scheme: "tuic", Credential: CredentialUUIDPassword, DefaultSecurity: SecurityTLS},
	ProtocolHysteria:    {Name: "hysteria", Code: "HY", Scheme: "hysteria2", Credential: CredentialToken, DefaultSecurity: SecurityTLS},
	ProtocolJuicity:     {Name: "juicity", Code: "JU", Scheme: "juicity", Credential: CredentialUUIDPassword, DefaultSecurity: SecurityTLS},
}

// Info returns the table row of the protocol
func (p Protocol) Info() ProtocolInfo {
	return protocolTable[p]
}

// String returns the bucket name of the protocol
func (p Protocol) String() string {
	if info, ok := protocolTable[p]; ok {
		return info.Name
	}
	return "unknown"
}

// Code returns the label abbreviation of the protocol
func (p Protocol) Code() string {
	return p.Info().Code
}

// Transport is the stream framing of a descriptor
type Transport int

const (
	TransportTCP Transport = iota
	TransportWS
	TransportGRPC
	TransportHTTP
)

// Transports lists every transport bucket
var Transports = []Transport{TransportTCP, TransportWS, TransportGRPC, TransportHTTP}

// ParseTransport maps a "type"/"net" value onto a transport, defaulting to TCP
func ParseTransport(value string) Transport {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ws", "websocket":
		return TransportWS
	case "grpc", "gun":
		return TransportGRPC
	case "http", "h2", "httpupgrade", "xhttp", "splithttp":
		return TransportHTTP
	default:
		return TransportTCP
	}
}

// String returns the lower-case bucket name of the transport
func (t Transport) String() string {
	switch t {
	case TransportWS:
		return "ws"
	case TransportGRPC:
		return "grpc"
	case TransportHTTP:
		return "http"
	default:
		return "tcp"
	}
}

// Code returns the label form of the transport
func (t Transport) Code() string {
	return strings.ToUpper(t.String())
}

// Security is the encryption layer of a descriptor
type Security int

const (
	SecurityNone Security = iota
	SecurityTLS
	SecurityReality
)

// ParseSecurity maps a "security"/"tls" value onto a security class.
// ok is false when the value is empty so callers can apply protocol defaults.
func ParseSecurity(value string) (Security, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SecurityNone, false
	case "tls", "xtls":
		return SecurityTLS, true
	case "reality":
		return SecurityReality, true
	default:
		return SecurityNone, true
	}
}

// String returns the lower-case name of the security class
func (s Security) String() string {
	switch s {
	case SecurityTLS:
		return "tls"
	case SecurityReality:
		return "reality"
	default:
		return "none"
	}
}

// Code returns the label form of the security class
func (s Security) Code() string {
	switch s {
	case SecurityTLS:
		return "TLS"
	case SecurityReality:
		return "RLT"
	default:
		return "NA"
	}
}

// Secure reports whether the class belongs to the "tls" security bucket
func (s Security) Secure() bool {
	return s == SecurityTLS || s == SecurityReality
}

// Param is a query pair kept verbatim (still percent-encoded)
type Param struct {
	Key   string
	Value string
}

// Member is a VMess JSON member kept in document order
type Member struct {
	Key   string
	Value []byte // raw JSON
}

// Descriptor is a parsed proxy connection URI
type Descriptor struct {
	protocol Protocol

	Scheme     string
	Credential string
	Host       string
	Port       int
	Transport  Transport
	Security   Security
	Path       string

	// Params holds every query pair in original order, recognized keys included,
	// so the query can be written back untouched.
	Params []Param
	// Members holds the decoded VMess document in original order.
	Members []Member

	Label string
}

// NewDescriptor creates a descriptor bound to a protocol
func NewDescriptor(protocol Protocol) *Descriptor {
	return &Descriptor{protocol: protocol, Scheme: protocol.Info().Scheme}
}

// Protocol returns the protocol, fixed at creation
func (d *Descriptor) Protocol() Protocol {
	return d.protocol
}

// Param returns the first query value whose key matches case-insensitively
func (d *Descriptor) Param(key string) (string, bool) {
	for _, p := range d.Params {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}
