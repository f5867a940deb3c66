package console

import (
	"fmt"
	"io"
	"sync"
)

// IndicatorTitle heads every rendering of the persistent indicator.
const IndicatorTitle = "Location Info"

// SettingsHint is printed by OpenSettings.
const SettingsHint = "Location settings: type 'allow' to grant location access or 'revoke' to withdraw it."

// Presenter renders the persistent indicator as lines on a terminal.
type Presenter struct {
	mu    sync.Mutex
	out   io.Writer
	shown bool
	text  string
}

// NewPresenter creates a presenter writing to out.
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

// RenderIndicator shows or refreshes the indicator.
func (p *Presenter) RenderIndicator(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shown = true
	p.text = text
	fmt.Fprintf(p.out, "[%s] %s  (foreground: launch, stop: stop updates)\n", IndicatorTitle, text)
}

// ClearIndicator removes the indicator if shown.
func (p *Presenter) ClearIndicator() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.shown {
		return
	}
	p.shown = false
	p.text = ""
	fmt.Fprintf(p.out, "[%s] dismissed\n", IndicatorTitle)
}

// OpenSettings points the user at the permission settings.
func (p *Presenter) OpenSettings() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, SettingsHint)
}

// Indicator returns the text currently shown, if any.
func (p *Presenter) Indicator() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, p.shown
}
