// Package setup implements the interactive first-run wizard that configures
// the provider connection and creates the installation profile.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter provides reusable terminal prompts backed by an io.Reader/Writer
// pair. In production these are os.Stdin and os.Stdout; tests can inject
// buffers for deterministic input.
type Prompter struct {
	scanner *bufio.Scanner
	w       io.Writer
}

// NewPrompter creates a Prompter wired to the given reader and writer.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(r), w: w}
}

// String prompts the user for a text value. If the user presses Enter without
// typing anything, defaultVal is returned. An empty defaultVal means the field
// is required and the prompt repeats until a non-empty value is given.
func (p *Prompter) String(label, defaultVal string) string {
	for {
		if defaultVal != "" {
			_, _ = fmt.Fprintf(p.w, "  %s [%s]: ", label, defaultVal)
		} else {
			_, _ = fmt.Fprintf(p.w, "  %s: ", label)
		}

		if !p.scanner.Scan() {
			return defaultVal
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			if defaultVal != "" {
				return defaultVal
			}
			_, _ = fmt.Fprintf(p.w, "  (required — please enter a value)\n")
			continue
		}
		return val
	}
}

// Secret prompts for a sensitive value (like a token). The value is not
// masked (terminal raw mode would require a dependency), but is marked as
// sensitive in the prompt label.
func (p *Prompter) Secret(label string) string {
	for {
		_, _ = fmt.Fprintf(p.w, "  %s: ", label)

		if !p.scanner.Scan() {
			return ""
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			_, _ = fmt.Fprintf(p.w, "  (required — please enter a value)\n")
			continue
		}
		return val
	}
}

// Confirm asks a yes/no question. defaultYes controls what happens when the
// user presses Enter without typing: true → yes, false → no.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	_, _ = fmt.Fprintf(p.w, "  %s %s: ", label, hint)

	if !p.scanner.Scan() {
		return defaultYes
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}

// Int prompts for an integer, repeating until a valid value inside
// [minVal, maxVal] is entered. Enter on its own returns defaultVal.
func (p *Prompter) Int(label string, defaultVal, minVal, maxVal int) int {
	for {
		_, _ = fmt.Fprintf(p.w, "  %s [%d]: ", label, defaultVal)

		if !p.scanner.Scan() {
			return defaultVal
		}

		raw := strings.TrimSpace(p.scanner.Text())
		if raw == "" {
			return defaultVal
		}
		val, err := strconv.Atoi(raw)
		if err != nil || val < minVal || val > maxVal {
			_, _ = fmt.Fprintf(p.w, "  (enter a number between %d and %d)\n", minVal, maxVal)
			continue
		}
		return val
	}
}

// Float prompts for a decimal number, repeating until a valid value inside
// [minVal, maxVal] is entered. Enter on its own returns defaultVal.
func (p *Prompter) Float(label string, defaultVal, minVal, maxVal float64) float64 {
	for {
		_, _ = fmt.Fprintf(p.w, "  %s [%g]: ", label, defaultVal)

		if !p.scanner.Scan() {
			return defaultVal
		}

		raw := strings.TrimSpace(p.scanner.Text())
		if raw == "" {
			return defaultVal
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil || val < minVal || val > maxVal {
			_, _ = fmt.Fprintf(p.w, "  (enter a number between %g and %g)\n", minVal, maxVal)
			continue
		}
		return val
	}
}
