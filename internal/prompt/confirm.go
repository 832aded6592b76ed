package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm asks a yes/no question. assumeYes skips the question; a
// non-interactive stdin without assumeYes is an error.
func (c Confirmer) Confirm(question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("non-interactive stdin: use -y to confirm")
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

// ConfirmGeneration asks before starting a paid video generation.
func (c Confirmer) ConfirmGeneration(model string, estimatedUSD float64, assumeYes bool) (bool, error) {
	q := fmt.Sprintf("Generate a video with %s?", model)
	if estimatedUSD > 0 {
		q = fmt.Sprintf("Generate a video with %s (about $%.2f)?", model, estimatedUSD)
	}
	return c.Confirm(q, assumeYes)
}
