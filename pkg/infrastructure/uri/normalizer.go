package uri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned when the candidate does not follow the protocol grammar
	ErrMalformed = errors.New("malformed uri")
	// ErrProtocol is returned when the candidate scheme does not match the expected protocol
	ErrProtocol = errors.New("protocol mismatch")
	// ErrEndpoint is returned when host or port is missing or out of range
	ErrEndpoint = errors.New("invalid endpoint")
	// ErrCredential is returned when the credential fails the protocol predicate
	ErrCredential = errors.New("invalid credential")
)

// Normalizer implements service.Normalizer
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Classify implements service.Normalizer
func (n *Normalizer) Classify(candidate string) (entity.Protocol, bool) {
	return Classify(strings.TrimSpace(candidate))
}

// Normalize parses one candidate expected to be of the given protocol
func (n *Normalizer) Normalize(candidate string, expected entity.Protocol) (*entity.Descriptor, error) {
	candidate = strings.TrimSpace(candidate)
	actual, ok := Classify(candidate)
	if !ok {
		return nil, fmt.Errorf("%w: unknown scheme", ErrMalformed)
	}
	if actual != expected {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrProtocol, actual, expected)
	}

	scheme, rest, _ := strings.Cut(candidate, "://")
	switch expected {
	case entity.ProtocolVMess:
		return parseVMess(rest)
	case entity.ProtocolShadowsocks:
		body, _, _ := strings.Cut(rest, "#")
		if !strings.Contains(body, "@") {
			return parseLegacyShadowsocks(body)
		}
	}

	return parseURL(expected, strings.ToLower(scheme), rest)
}

// parseURL handles scheme://credential@host:port[/path]?query#fragment
func parseURL(protocol entity.Protocol, scheme, rest string) (*entity.Descriptor, error) {
	body, _, _ := strings.Cut(rest, "#")
	authority, rawQuery, _ := strings.Cut(body, "?")

	var path string
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		if slash := strings.Index(authority[at:], "/"); slash >= 0 {
			authority, path = authority[:at+slash], authority[at+slash:]
		}
	} else if slash := strings.Index(authority, "/"); slash >= 0 {
		authority, path = authority[:slash], authority[slash:]
	}
	if path == "/" {
		path = ""
	}

	d := entity.NewDescriptor(protocol)
	d.Scheme = scheme
	d.Path = path
	d.Params = parseQuery(rawQuery)

	hostport := authority
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		d.Credential = authority[:at]
		hostport = authority[at+1:]
	}

	host, port, err := splitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	d.Host, d.Port = host, port

	transport, _ := d.Param("type")
	d.Transport = entity.ParseTransport(unescape(transport))

	d.Security = protocol.Info().DefaultSecurity
	if value, ok := d.Param("security"); ok {
		if security, set := entity.ParseSecurity(unescape(value)); set {
			d.Security = security
		}
	}

	if err := validateCredential(d); err != nil {
		return nil, err
	}
	return d, nil
}

// parseLegacyShadowsocks handles ss://base64(method:password@host:port)
func parseLegacyShadowsocks(body string) (*entity.Descriptor, error) {
	body, _, _ = strings.Cut(body, "?")
	decoded, err := decodeBase64(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	plain := string(decoded)
	at := strings.LastIndex(plain, "@")
	if at < 0 {
		return nil, fmt.Errorf("%w: missing @ in decoded body", ErrMalformed)
	}
	userinfo := plain[:at]
	if method, password, ok := strings.Cut(userinfo, ":"); !ok || method == "" || password == "" {
		return nil, fmt.Errorf("%w: expected method:password", ErrCredential)
	}

	host, port, err := splitHostPort(plain[at+1:])
	if err != nil {
		return nil, err
	}

	d := entity.NewDescriptor(entity.ProtocolShadowsocks)
	d.Credential = base64.RawURLEncoding.EncodeToString([]byte(userinfo))
	d.Host, d.Port = host, port
	return d, nil
}

// parseQuery collects query pairs in order, values kept percent-encoded
func parseQuery(rawQuery string) []entity.Param {
	var params []entity.Param
	for _, piece := range strings.Split(rawQuery, "&") {
		key, value, ok := strings.Cut(piece, "=")
		if !ok || key == "" {
			continue
		}
		params = append(params, entity.Param{Key: key, Value: value})
	}
	return params
}

func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(hostport))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrEndpoint, err)
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: empty host", ErrEndpoint)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: port %q", ErrEndpoint, value)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrEndpoint, port)
	}
	return port, nil
}

func validateCredential(d *entity.Descriptor) error {
	credential := unescape(d.Credential)

	switch d.Protocol().Info().Credential {
	case entity.CredentialUUID:
		if _, err := uuid.Parse(credential); err != nil {
			return fmt.Errorf("%w: %v", ErrCredential, err)
		}
	case entity.CredentialUUIDPassword:
		id, _, _ := strings.Cut(credential, ":")
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: %v", ErrCredential, err)
		}
	case entity.CredentialToken:
		if credential != "" {
			return nil
		}
		// hysteria may carry its secret in the auth parameter instead of the userinfo
		if d.Protocol() == entity.ProtocolHysteria {
			if auth, ok := d.Param("auth"); ok && auth != "" {
				return nil
			}
		}
		return fmt.Errorf("%w: empty token", ErrCredential)
	}
	return nil
}

// decodeBase64 accepts standard or URL alphabets with missing padding
func decodeBase64(value string) ([]byte, error) {
	value = strings.Join(strings.Fields(value), "")
	if value == "" {
		return nil, errors.New("empty base64 body")
	}
	value = strings.TrimRight(value, "=")
	padded := value + strings.Repeat("=", (4-len(value)%4)%4)

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		decoded, err := enc.DecodeString(padded)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func unescape(value string) string {
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
