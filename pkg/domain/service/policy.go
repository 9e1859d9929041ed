package service

import "net/netip"

// FirstAddress keeps only the first resolved address
func FirstAddress(addrs []netip.Addr) []netip.Addr {
	if len(addrs) == 0 {
		return nil
	}
	return addrs[:1]
}

// AllAddresses keeps every resolved address in order
func AllAddresses(addrs []netip.Addr) []netip.Addr {
	return addrs
}
