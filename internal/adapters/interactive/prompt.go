package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// Prompter asks the operator through the terminal
type Prompter struct {
	config *config.RuntimeConfig
}

// NewPrompter creates a new prompter
func NewPrompter(cfg *config.RuntimeConfig) *Prompter {
	return &Prompter{config: cfg}
}

// Confirm asks a yes/no question. Ctrl-C and "n" both answer no.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.config.NonInteractive {
		return false, fmt.Errorf("confirmation not available in non-interactive mode")
	}

	confirm := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Select lets the operator pick one of options with fuzzy search
func (p *Prompter) Select(ctx context.Context, prompt string, options []string) (string, error) {
	if p.config.NonInteractive {
		return "", fmt.Errorf("interactive selection not available in non-interactive mode")
	}
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}
	if len(options) == 1 {
		return options[0], nil
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, type to search, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          fuzzySearcher(options),
	}
	i, _, err := promptSelect.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return options[i], nil
}

// fuzzySearcher matches by substring first, then by fuzzy subsequence
func fuzzySearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}
		input = strings.ToLower(input)
		item := strings.ToLower(items[index])
		if strings.Contains(item, input) {
			return true
		}
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var _ usecase.Confirmer = (*Prompter)(nil)
