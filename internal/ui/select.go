package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// maxSelectAttempts bounds how often an invalid menu answer is re-asked
// before falling back to the first option.
const maxSelectAttempts = 3

// IsInteractive reports whether stdin is attached to a terminal. Menus are
// only shown interactively; piped input falls through to defaults.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// SelectOption shows a lettered menu (A, B, C, ...) and returns the index of
// the chosen option. An option can be picked by its letter or its full text,
// case-insensitively. After three invalid answers the first option wins.
func SelectOption(title string, options []string) int {
	return selectOption(os.Stdin, os.Stdout, title, options)
}

func selectOption(in io.Reader, out io.Writer, title string, options []string) int {
	if len(options) < 2 {
		return 0
	}

	fmt.Fprintf(out, "%s\n", title)
	for i, opt := range options {
		fmt.Fprintf(out, "  %c. %s\n", 'A'+i, opt)
	}

	reader := bufio.NewReader(in)
	for attempt := 0; attempt < maxSelectAttempts; attempt++ {
		fmt.Fprintf(out, "Enter your choice [A]: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			break
		}

		if idx, ok := ParseChoice(line, options); ok {
			return idx
		}
		Error("invalid choice %q, expected A-%c", strings.TrimSpace(line), 'A'+len(options)-1)
	}
	return 0
}

// ParseChoice maps an answer to an option index. Empty input selects the
// first option.
func ParseChoice(input string, options []string) (int, bool) {
	answer := strings.TrimSpace(strings.ToLower(input))
	if answer == "" {
		return 0, true
	}

	if len(answer) == 1 {
		idx := int(answer[0] - 'a')
		if idx >= 0 && idx < len(options) {
			return idx, true
		}
	}

	for i, opt := range options {
		if strings.EqualFold(answer, opt) {
			return i, true
		}
	}
	return 0, false
}
