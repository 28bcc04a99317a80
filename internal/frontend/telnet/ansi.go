// Package telnet serves dice expressions over a line-oriented Telnet
// connection with optional ANSI styling.
package telnet

// ANSI escape codes used by the line server.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"

	BrightGreen = "\033[92m"
)

// Palette assigns an escape sequence to each kind of line the server writes.
// An empty entry writes the text unstyled.
type Palette struct {
	Total   string
	History string
	Error   string
	Info    string
	Prompt  string
}

// ColorPalette is the default palette for ANSI-capable terminals.
var ColorPalette = Palette{
	Total:   Bold + BrightGreen,
	History: Dim,
	Error:   Red,
	Info:    Cyan,
	Prompt:  Yellow,
}

// PlainPalette writes every line without escape sequences.
var PlainPalette = Palette{}

// Paint wraps text in color unless color is empty.
func Paint(color, text string) string {
	if color == "" {
		return text
	}
	return Colorize(color, text)
}

// Colorize wraps text with the given ANSI color code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
// Postcondition: Returns text wrapped with the color code and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// StripANSI removes all ANSI escape sequences from a string.
//
// Postcondition: Returns text with all \033[...m sequences removed.
func StripANSI(s string) string {
	result := make([]byte, 0, len(s))
	i := 0
	for i < len(s) {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			if j < len(s) {
				i = j + 1
				continue
			}
		}
		result = append(result, s[i])
		i++
	}
	return string(result)
}
