package routing

type converter struct {
	name  string
	match func(string) bool
}

var converters = map[string]converter{
	"str":  {name: "str", match: func(s string) bool { return s != "" }},
	"hex":  {name: "hex", match: allRunes(isHexDigit)},
	"int":  {name: "int", match: allRunes(func(c rune) bool { return c >= '0' && c <= '9' })},
	"slug": {name: "slug", match: allRunes(isSlugRune)},
}

func allRunes(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		if s == "" {
			return false
		}
		for _, c := range s {
			if !pred(c) {
				return false
			}
		}
		return true
	}
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSlugRune(c rune) bool {
	return c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsHex reports whether s is a non-empty string of hexadecimal digits.
func IsHex(s string) bool {
	return converters["hex"].match(s)
}
