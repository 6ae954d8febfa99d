package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/konradmalik/htmllint-ls/types"
)

var defaultBannedAttributes = []string{
	"align", "background", "bgcolor", "border", "frameborder", "longdesc",
	"marginwidth", "marginheight", "scrolling", "style", "width",
}

// options are the rule settings the native engine understands. Empty strings and zero values disable a rule.
type options struct {
	attrBans      []string
	attrNameStyle string
	attrNoDup     bool
	idClassStyle  string
	idNoDup       bool
	indentWidth   int
	attrNewLine   int
}

func parseOptions(config types.LintConfig) (options, error) {
	opts := options{}
	var err error

	if opts.attrBans, err = stringsOption(config, "attr-bans", defaultBannedAttributes); err != nil {
		return opts, err
	}
	if opts.attrNameStyle, err = formatOption(config, "attr-name-style", "dash"); err != nil {
		return opts, err
	}
	if opts.attrNoDup, err = boolOption(config, "attr-no-dup", true); err != nil {
		return opts, err
	}
	if opts.idClassStyle, err = formatOption(config, "id-class-style", ""); err != nil {
		return opts, err
	}
	if opts.idNoDup, err = boolOption(config, "id-no-dup", true); err != nil {
		return opts, err
	}
	if opts.indentWidth, err = intOption(config, "indent-width", 4); err != nil {
		return opts, err
	}
	if opts.attrNewLine, err = intOption(config, "attr-new-line", 0); err != nil {
		return opts, err
	}

	return opts, nil
}

func invalidOption(key string, v any) error {
	return fmt.Errorf("invalid value for option %q: %v", key, v)
}

func boolOption(config types.LintConfig, key string, def bool) (bool, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidOption(key, v)
	}
	return b, nil
}

func formatOption(config types.LintConfig, key string, def string) (string, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch f := v.(type) {
	case bool:
		if f {
			return "", invalidOption(key, v)
		}
		return "", nil
	case string:
		if _, known := formats[f]; !known {
			return "", invalidOption(key, v)
		}
		return f, nil
	default:
		return "", invalidOption(key, v)
	}
}

// maxIntOption bounds numeric options so the conversion to int is exact on every platform.
const maxIntOption = math.MaxInt32

func intOption(config types.LintConfig, key string, def int) (int, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case bool:
		if n {
			return def, nil
		}
		return 0, nil
	case float64:
		if n < 0 || n > maxIntOption || n != math.Trunc(n) {
			return 0, invalidOption(key, v)
		}
		return int(n), nil
	case int:
		if n < 0 || n > maxIntOption {
			return 0, invalidOption(key, v)
		}
		return n, nil
	case string:
		// "+N" style limits
		i, err := strconv.Atoi(strings.TrimPrefix(n, "+"))
		if err != nil || i < 0 || i > maxIntOption {
			return 0, invalidOption(key, v)
		}
		return i, nil
	default:
		return 0, invalidOption(key, v)
	}
}

func stringsOption(config types.LintConfig, key string, def []string) ([]string, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch l := v.(type) {
	case bool:
		if l {
			return def, nil
		}
		return nil, nil
	case string:
		return []string{l}, nil
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, invalidOption(key, v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidOption(key, v)
	}
}
