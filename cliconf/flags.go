package cliconf

import (
	"fmt"
	"strings"
)

const (
	boolTrue  = "true"
	boolFalse = "false"
)

// parseFlags splits src into flag values and positional arguments. Flags come
// first; the first argument not starting with '-' and everything after it
// are positional, so values such as "-5" can be passed once a positional
// argument has started. A bare "--" ends the flags explicitly.
func parseFlags(src []string, booleans map[string]struct{}) (map[string]string, []string, error) {
	flagMap := make(map[string]string)

	for len(src) > 0 {
		arg := src[0]
		if arg == "--" {
			return flagMap, src[1:], nil
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			return flagMap, src, nil
		}
		arg = strings.TrimPrefix(arg, "-")
		arg = strings.TrimPrefix(arg, "-")
		src = src[1:]

		name, value, hasValue := strings.Cut(arg, "=")

		if _, ok := booleans[name]; ok {
			if hasValue {
				flagMap[name] = value
				continue
			}
			if len(src) == 0 {
				flagMap[name] = boolTrue
				continue
			}
			// Only consume an explicit true or false, anything else is the
			// next argument.
			lower := strings.ToLower(src[0])
			if lower == boolTrue || lower == boolFalse {
				flagMap[name] = lower
				src = src[1:]
				continue
			}
			flagMap[name] = boolTrue
			continue
		}

		if hasValue {
			flagMap[name] = value
			continue
		}

		if len(src) == 0 {
			return nil, nil, ParamErrors{{
				Flag: name,
				Err:  fmt.Errorf("flag has no value"),
			}}
		}

		flagMap[name] = src[0]
		src = src[1:]
	}

	return flagMap, []string{}, nil
}
