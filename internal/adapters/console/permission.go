package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bft-labs/geotrack/internal/domain"
)

// PermissionMode selects how the gate answers.
type PermissionMode string

const (
	PermissionGranted PermissionMode = "granted"
	PermissionDenied  PermissionMode = "denied"
	PermissionPrompt  PermissionMode = "prompt"
)

// PermissionQuestion is asked in PermissionPrompt mode.
const PermissionQuestion = "Allow geotrack to access your location? [y]es/[n]o/[c]ancel: "

// Prompter asks the user a question and returns the raw answer.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// PermissionGate implements ports.PermissionGate for a terminal session.
// A granted answer is remembered for the lifetime of the gate.
type PermissionGate struct {
	mode     PermissionMode
	prompter Prompter

	mu      sync.Mutex
	granted bool
}

// NewPermissionGate creates a gate. prompter is required in PermissionPrompt mode.
func NewPermissionGate(mode PermissionMode, prompter Prompter) (*PermissionGate, error) {
	switch mode {
	case PermissionGranted, PermissionDenied:
	case PermissionPrompt:
		if prompter == nil {
			return nil, errors.New("console: prompt mode needs a prompter")
		}
	default:
		return nil, fmt.Errorf("console: unknown permission mode %q", mode)
	}
	return &PermissionGate{
		mode:     mode,
		prompter: prompter,
		granted:  mode == PermissionGranted,
	}, nil
}

// HasPermission reports whether access is currently granted.
func (g *PermissionGate) HasPermission(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// RequestPermission asks for access. In PermissionPrompt mode it blocks
// until the user answers; end of input counts as canceled.
func (g *PermissionGate) RequestPermission(ctx context.Context) (domain.Grant, error) {
	if g.HasPermission(ctx) {
		return domain.GrantGranted, nil
	}
	if g.mode != PermissionPrompt {
		return domain.GrantDenied, nil
	}

	answer, err := g.prompter.Prompt(ctx, PermissionQuestion)
	if errors.Is(err, io.EOF) {
		return domain.GrantCanceled, nil
	}
	if err != nil {
		return domain.GrantCanceled, err
	}

	grant := parseAnswer(answer)
	if grant == domain.GrantGranted {
		g.SetGranted(true)
	}
	return grant, nil
}

// SetGranted changes the permission, as a user would in system settings.
func (g *PermissionGate) SetGranted(granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = granted
}

func parseAnswer(s string) domain.Grant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return domain.GrantGranted
	case "c", "cancel":
		return domain.GrantCanceled
	default:
		return domain.GrantDenied
	}
}
