package uri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

// ErrRender is returned when a descriptor cannot be written back
var ErrRender = errors.New("render failed")

// Renderer implements service.Renderer
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes the descriptor in its native form with host replaced by ip and the label attached
func (r *Renderer) Render(d *entity.Descriptor, ip netip.Addr, label string) (string, error) {
	if d == nil || !ip.IsValid() {
		return "", fmt.Errorf("%w: missing descriptor or address", ErrRender)
	}
	ip = ip.Unmap()

	if d.Protocol() == entity.ProtocolVMess {
		return renderVMess(d, ip, label)
	}

	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")
	if d.Credential != "" {
		b.WriteString(d.Credential)
		b.WriteByte('@')
	}
	b.WriteString(HostLiteral(ip))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(d.Port))
	b.WriteString(d.Path)
	if len(d.Params) > 0 {
		b.WriteByte('?')
		for i, p := range d.Params {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(p.Key)
			b.WriteByte('=')
			b.WriteString(p.Value)
		}
	}
	if label != "" {
		b.WriteByte('#')
		b.WriteString((&url.URL{Fragment: label}).EscapedFragment())
	}
	return b.String(), nil
}

func renderVMess(d *entity.Descriptor, ip netip.Addr, label string) (string, error) {
	if len(d.Members) == 0 {
		return "", fmt.Errorf("%w: vmess descriptor without document", ErrRender)
	}
	members, err := withMember(d.Members, "add", ip.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	members, err = withMember(members, "ps", label)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	data, err := encodeMembers(members)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(data), nil
}

// HostLiteral returns the address in URI host form, IPv6 bracketed
func HostLiteral(ip netip.Addr) string {
	ip = ip.Unmap()
	if ip.Is6() {
		return "[" + ip.String() + "]"
	}
	return ip.String()
}
