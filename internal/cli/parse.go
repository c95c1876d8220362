package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// parseAddr accepts decimal, 0x hex, 0o octal and 0b binary addresses.
func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid address %q", s))
	}
	return uint32(v), nil
}

func parseLen(s string) (int, error) {
	v, err := strconv.ParseUint(s, 0, 31)
	if err != nil || v == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid length %q", s))
	}
	return int(v), nil
}

// parseHex decodes a hex payload. A 0x prefix and embedded spaces or
// colons are allowed: "0xdeadbeef", "de ad be ef", "de:ad:be:ef".
func parseHex(s string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.ToLower(s), "0x")
	clean = strings.NewReplacer(" ", "", ":", "").Replace(clean)
	b, err := hex.DecodeString(clean)
	if err != nil || len(b) == 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid hex data %q", s))
	}
	return b, nil
}
