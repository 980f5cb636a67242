//go:build !linux

package capture

// checkLink is a no-op outside Linux; pcap reports unusable interfaces itself.
func checkLink(name string) error {
	return nil
}
