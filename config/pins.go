package config

import (
	"strconv"
	"strings"

	"stepplan/core"
)

// ResolvePin converts a pin name from a machine description into the
// GPIOPin numbering the active core.GPIODriver expects. It accepts a
// bare decimal pin number ("23") or a port-letter/number pair
// ("PA3", "PB10"), the two forms the example machine descriptions use;
// anything else resolves to 0 so a missing or malformed pin fails safe
// as "pin zero" rather than panicking during config load.
func ResolvePin(name string) core.GPIOPin {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if n, err := strconv.Atoi(name); err == nil {
		return core.GPIOPin(n)
	}
	if len(name) >= 3 && (name[0] == 'P' || name[0] == 'p') {
		port := name[1] - 'A'
		if name[1] >= 'a' {
			port = name[1] - 'a'
		}
		num, err := strconv.Atoi(name[2:])
		if err == nil {
			return core.GPIOPin(uint32(port)*32 + uint32(num))
		}
	}
	return 0
}
