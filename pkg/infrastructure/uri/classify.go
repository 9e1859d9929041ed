package uri

import (
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

// Classify routes a candidate to the protocol its scheme announces.
// VLess carrying security=reality is Reality, any scheme starting with "hy" is Hysteria.
func Classify(candidate string) (entity.Protocol, bool) {
	scheme, rest, found := strings.Cut(candidate, "://")
	if !found {
		return 0, false
	}
	scheme = strings.ToLower(scheme)

	switch {
	case scheme == "ss":
		return entity.ProtocolShadowsocks, true
	case scheme == "trojan":
		return entity.ProtocolTrojan, true
	case scheme == "vmess":
		return entity.ProtocolVMess, true
	case scheme == "vless":
		if strings.Contains(strings.ToLower(rest), "security=reality") {
			return entity.ProtocolReality, true
		}
		return entity.ProtocolVLess, true
	case scheme == "tuic":
		return entity.ProtocolTuic, true
	case strings.HasPrefix(scheme, "hy"):
		return entity.ProtocolHysteria, true
	case scheme == "juicity":
		return entity.ProtocolJuicity, true
	}
	return 0, false
}
