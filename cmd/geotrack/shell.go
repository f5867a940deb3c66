package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/bft-labs/geotrack/internal/adapters/console"
	"github.com/bft-labs/geotrack/pkg/geotrack"
)

const shellHelp = `commands:
  toggle       start or stop location updates
  stop         stop location updates
  background   leave the session (tracking continues with an indicator)
  foreground   return to the session
  rotate       recreate the session view without leaving it
  status       print state, intent and the latest fix
  log          print the session log
  settings     open the permission settings
  allow        grant location access
  revoke       withdraw location access, also from a running subscription
  quit         exit; tracking resumes on the next start if it was on
`

// failer is implemented by sources that can end their live subscriptions.
type failer interface {
	Fail(err error)
}

// shell drives a tracker session from terminal commands.
type shell struct {
	tracker *geotrack.Tracker
	session *geotrack.Session
	term    *console.Terminal
	gate    *console.PermissionGate
	source  geotrack.LocationSource

	mu   sync.Mutex
	last string
}

func newShell(t *geotrack.Tracker, term *console.Terminal, gate *console.PermissionGate, src geotrack.LocationSource) *shell {
	s := &shell{tracker: t, session: t.Session(), term: term, gate: gate, source: src}
	s.session.OnChange(s.echo)
	return s
}

// echo prints the newest log line once.
func (s *shell) echo() {
	lines := s.session.Lines()
	if len(lines) == 0 {
		return
	}
	newest := lines[len(lines)-1]

	s.mu.Lock()
	defer s.mu.Unlock()
	if newest == s.last {
		return
	}
	s.last = newest
	s.term.Printf("%s\n", newest)
}

func (s *shell) loop(ctx context.Context) error {
	// The session stays attached through shutdown so quitting does not
	// raise the indicator.
	s.session.Attach()

	s.term.Printf("%s", shellHelp)
	s.printLabel()

	for {
		line, err := s.term.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
		case "t", "toggle":
			if err := s.session.Toggle(ctx); err != nil {
				s.term.Printf("toggle: %v\n", err)
			}
			if s.session.Remediation() {
				s.term.Printf("location permission denied; type 'settings' to change it\n")
			}
			s.printLabel()
		case "stop":
			if err := s.session.StopTracking(); errors.Is(err, geotrack.ErrNotRunning) {
				s.term.Printf("not tracking\n")
			} else if err != nil {
				s.term.Printf("stop: %v\n", err)
			}
			s.printLabel()
		case "b", "background":
			s.session.Detach()
		case "f", "foreground":
			s.session.Attach()
			s.printLabel()
		case "r", "rotate":
			s.session.Reattach()
		case "s", "status":
			s.printStatus()
		case "l", "log":
			for _, l := range s.session.Lines() {
				s.term.Printf("%s\n", l)
			}
		case "settings":
			s.session.OpenSettings()
			s.term.Printf("location access: %s\n", s.access())
		case "allow":
			s.gate.SetGranted(true)
			s.term.Printf("location access: %s\n", s.access())
		case "revoke":
			s.revoke()
			s.term.Printf("location access: %s\n", s.access())
		case "h", "help", "?":
			s.term.Printf("%s", shellHelp)
		case "q", "quit", "exit":
			return nil
		default:
			s.term.Printf("unknown command %q, type 'help'\n", line)
		}
	}
}

// revoke withdraws access the way the system would: the gate refuses and
// live subscriptions fail with a permission error.
func (s *shell) revoke() {
	s.gate.SetGranted(false)
	if f, ok := s.source.(failer); ok {
		f.Fail(geotrack.ErrPermissionDenied)
	}
}

func (s *shell) access() string {
	if s.gate.HasPermission(context.Background()) {
		return "on"
	}
	return "off"
}

func (s *shell) printLabel() {
	s.term.Printf("[%s]\n", s.session.Label())
}

func (s *shell) printStatus() {
	st := s.tracker.Status()
	fix := "none"
	if st.Fix != nil {
		fix = st.Fix.Text()
	}
	s.term.Printf("state: %s  tracking: %t  mode: %s  last fix: %s\n", st.State, st.Desired, st.Mode, fix)
}
