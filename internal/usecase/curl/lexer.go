package curl

import "strings"

// tokenize splits a shell command line the way a POSIX shell would for the
// subset of syntax browsers emit in "copy as cURL": single quotes, double
// quotes, $'...' ANSI-C strings, backslash escapes and line continuations.
// An unterminated quote extends to the end of the input.
func tokenize(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inToken bool
	)
	flush := func() {
		if inToken {
			out = append(out, cur.String())
		}
		cur.Reset()
		inToken = false
	}

	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()

		case r == '\\':
			if i+1 >= len(rs) {
				continue
			}
			next := rs[i+1]
			if next == '\n' {
				i++
				continue
			}
			if next == '\r' && i+2 < len(rs) && rs[i+2] == '\n' {
				i += 2
				continue
			}
			cur.WriteRune(next)
			inToken = true
			i++

		case r == '\'':
			inToken = true
			j := i + 1
			for j < len(rs) && rs[j] != '\'' {
				cur.WriteRune(rs[j])
				j++
			}
			i = j

		case r == '"':
			inToken = true
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' && j+1 < len(rs) && strings.ContainsRune("\"\\$`\n", rs[j+1]) {
					if rs[j+1] != '\n' {
						cur.WriteRune(rs[j+1])
					}
					j += 2
					continue
				}
				cur.WriteRune(rs[j])
				j++
			}
			i = j

		case r == '$' && i+1 < len(rs) && rs[i+1] == '\'':
			inToken = true
			i = readANSIC(rs, i+2, &cur)

		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	flush()
	return out
}

// readANSIC consumes a $'...' body starting at i and returns the index of the
// closing quote.
func readANSIC(rs []rune, i int, cur *strings.Builder) int {
	for ; i < len(rs); i++ {
		r := rs[i]
		if r == '\'' {
			return i
		}
		if r != '\\' || i+1 >= len(rs) {
			cur.WriteRune(r)
			continue
		}
		i++
		switch rs[i] {
		case 'n':
			cur.WriteByte('\n')
		case 'r':
			cur.WriteByte('\r')
		case 't':
			cur.WriteByte('\t')
		case '0':
			cur.WriteByte(0)
		case 'x':
			if i+2 < len(rs) {
				if b, ok := hexByte(rs[i+1], rs[i+2]); ok {
					cur.WriteByte(b)
					i += 2
					continue
				}
			}
			cur.WriteString(`\x`)
		case '\\', '\'', '"', '?':
			cur.WriteRune(rs[i])
		default:
			cur.WriteByte('\\')
			cur.WriteRune(rs[i])
		}
	}
	return i
}

func hexByte(a, b rune) (byte, bool) {
	hi, ok1 := hexVal(a)
	lo, ok2 := hexVal(b)
	return hi<<4 | lo, ok1 && ok2
}

func hexVal(r rune) (byte, bool) {
	switch {
	case r >= '0' && r <= '9':
		return byte(r - '0'), true
	case r >= 'a' && r <= 'f':
		return byte(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return byte(r-'A') + 10, true
	}
	return 0, false
}
