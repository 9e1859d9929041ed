package domainservice

import (
	"net/netip"
	"strings"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/uri"
	"github.com/google/uuid"
)

// DefaultBannerPort is the loopback port of the banner entry
const DefaultBannerPort = 1080

// bannerZone is the fixed +03:30 offset used for update stamps
var bannerZone = time.FixedZone("IRST", 3*60*60+30*60)

// BannerTitle formats the update stamp shown as the first entry of the mixed bucket
func BannerTitle(now time.Time) string {
	stamp := now.In(bannerZone).Format("Mon-02-January-2006 \U0001F551 15:04")
	return strings.ToUpper("\U0001F504 LATEST-UPDATE \U0001F4C5 " + stamp)
}

// Banner returns a placeholder VLess descriptor carrying title as its label.
// It points at the loopback address so clients never connect anywhere.
func Banner(title string, port int) (string, error) {
	if port <= 0 {
		port = DefaultBannerPort
	}

	d := entity.NewDescriptor(entity.ProtocolVLess)
	d.Credential = uuid.NewString()
	d.Port = port
	d.Security = entity.SecurityTLS
	d.Params = []entity.Param{
		{Key: "security", Value: "tls"},
		{Key: "type", Value: "tcp"},
	}
	return uri.NewRenderer().Render(d, netip.AddrFrom4([4]byte{127, 0, 0, 1}), title)
}
