package webutil

import (
	"log"
	"net"
	"net/url"
)

// IsSafeURL rejects URLs that resolve to private or loopback ranges. The
// avatar and ingest fetchers take user-supplied URLs, so this blocks SSRF
// against anything on the local network.
func IsSafeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		log.Printf("[webutil] dns lookup failed for %s: %v", host, err)
		return false
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			log.Printf("[webutil] blocked fetch of %s (resolves to %s)", rawURL, ip)
			return false
		}
	}
	return true
}
