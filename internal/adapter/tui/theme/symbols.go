package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs the UI draws, with an ASCII fallback for
// terminals that cannot render Unicode.
type SymbolSet struct {
	Error  string
	ArrowR string
	Bullet string
	Cursor string
}

var unicodeSymbols = SymbolSet{
	Error:  "\u2717", // ✗
	ArrowR: "\u2192", // →
	Bullet: "\u2022", // •
	Cursor: "\u25B8", // ▸
}

var asciiSymbols = SymbolSet{
	Error:  "[ERR]",
	ArrowR: "->",
	Bullet: "*",
	Cursor: ">",
}

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// VISUAL_ASCII_SYMBOLS=1 and TERM=dumb force ASCII. Otherwise the first set
// of LC_ALL, LC_CTYPE and LANG decides; with none set, Unicode is assumed.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("VISUAL_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if val == "" {
			continue
		}
		return strings.Contains(val, "utf-8") || strings.Contains(val, "utf8")
	}
	return true
}

// InitSymbols sets the package-level Symbol* variables from the detected
// terminal capabilities. Tests that change the environment call it again.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolError = set.Error
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolCursor = set.Cursor
}

func init() {
	InitSymbols()
}
