package utils

import (
	"regexp"
	"strings"
)

var hexAddressPattern = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// ZeroAddress is the EVM zero address; the escrow contract reports it as the
// poster of jobs that were never funded.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsEvmAddress checks whether s is a 0x-prefixed 20-byte hex address
func IsEvmAddress(s string) bool {
	return hexAddressPattern.MatchString(s)
}

// NormalizeAddress lowercases an address for map keys and comparisons.
// Checksum casing varies between the wallet, the job store and the chain, so
// every comparison in this codebase goes through here.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress compares two addresses case-insensitively
func SameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// IsZeroAddress reports whether the address is empty or the zero address
func IsZeroAddress(address string) bool {
	return address == "" || NormalizeAddress(address) == ZeroAddress
}
