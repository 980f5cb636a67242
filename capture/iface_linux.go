//go:build linux

package capture

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// checkLink verifies the capture interface exists and is administratively up
// before pcap tries to open it, so misconfiguration fails with a clear error.
func checkLink(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("capture interface %s: %w", name, err)
	}
	if link.Attrs().OperState == netlink.OperDown {
		return fmt.Errorf("capture interface %s is down", name)
	}
	return nil
}
