package prompt

import (
	"fmt"
	"strings"
)

// Confirm asks a yes/no question. Anything but "y" or "yes" is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", question)

	input, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
