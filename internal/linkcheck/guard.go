package linkcheck

import (
	"fmt"
	"net"
	"syscall"
)

// publicOnly refuses connections to loopback, private, link-local and
// unspecified addresses. Certificates are untrusted input; their links must
// not reach internal services.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("refusing to dial non-IP address %q", host)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() {
		return fmt.Errorf("refusing to dial non-public address %s", ip)
	}
	return nil
}
