// Package dateformat converts the PHP-style date patterns stored in the
// backend configuration ("Y-m-d", "H:i") into Go layouts for validation and
// into the MooTools notation the date picker script expects.
package dateformat

import (
	"strings"
	"time"
)

// Formats holds the configured patterns per rgxp.
type Formats struct {
	Date  string
	Time  string
	Datim string
}

// Defaults returns the stock patterns.
func Defaults() Formats {
	return Formats{Date: "Y-m-d", Time: "H:i", Datim: "Y-m-d H:i"}
}

// For returns the pattern associated with an rgxp name ("date", "time",
// "datim"). Other names yield "".
func (f Formats) For(rgxp string) string {
	switch rgxp {
	case "date":
		return f.Date
	case "time":
		return f.Time
	case "datim":
		return f.Datim
	}
	return ""
}

var jsTokens = map[byte]string{
	'a': "%p", 'A': "%p", 'D': "%a", 'd': "%d", 'l': "%A", 'j': "%e",
	'z': "%j", 'F': "%B", 'm': "%m", 'M': "%b", 'n': "%m", 'Y': "%Y",
	'y': "%y", 'g': "%I", 'G': "%H", 'h': "%I", 'H': "%H", 'i': "%M",
	's': "%S", 'U': "%s",
}

var goTokens = map[byte]string{
	'a': "pm", 'A': "PM", 'D': "Mon", 'd': "02", 'l': "Monday", 'j': "2",
	'F': "January", 'm': "01", 'M': "Jan", 'n': "1", 'Y': "2006", 'y': "06",
	'g': "3", 'G': "15", 'h': "03", 'H': "15", 'i': "04", 's': "05",
}

// ToJS converts a PHP pattern to the picker notation. A backslash escapes
// the next character.
func ToJS(pattern string) string {
	return convert(pattern, jsTokens)
}

// Layout converts a PHP pattern to a Go time layout.
func Layout(pattern string) string {
	return convert(pattern, goTokens)
}

// Valid reports whether value matches pattern.
func Valid(pattern, value string) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	_, err := time.Parse(Layout(pattern), value)
	return err == nil
}

func convert(pattern string, tokens map[byte]string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch == '\\' && i+1 < len(pattern) {
			i++
			b.WriteByte(pattern[i])
			continue
		}
		if repl, ok := tokens[ch]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
