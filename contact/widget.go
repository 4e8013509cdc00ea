package contact

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dkessler/homepage/model"
)

// Mode is the top-level presentation state of the contact widget.
type Mode string

const (
	Closed     Mode = "closed"
	Collecting Mode = "collecting"
	Revealed   Mode = "revealed"
)

const (
	msgName         = "Please enter your name"
	msgEmail        = "Please enter a valid email address"
	msgVerification = "Please complete the verification"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Provider is the verification challenge capability the widget depends on.
// It stands in for the browser-global script of the real challenge service,
// so the widget never touches ambient global state.
type Provider interface {
	// Load starts the asynchronous load of the provider script.
	// onDone must be invoked at most once and never before Load returns.
	// The returned cancel func removes the injected script element; it
	// must be safe to call at any time, including after completion.
	Load(onDone func(err error)) (cancel func())

	// Render mounts a challenge into the widget's container and arms
	// onSuccess. Calling Render twice without an intervening Reset is
	// an error.
	Render(siteKey string, onSuccess func()) error

	// Reset clears a rendered challenge so the container can be reused.
	Reset()
}

// Widget is the gated contact-disclosure state machine. One instance per
// visitor session. The contact card is rendered if and only if the mode
// is Revealed, which is reachable only through a submit that found the
// session human-verified.
type Widget struct {
	provider Provider
	siteKey  string
	card     model.ContactCard

	mu                sync.Mutex
	mounted           bool
	mode              Mode
	draft             model.Draft
	scriptLoaded      bool
	challengeRendered bool
	humanVerified     bool
	loadFailed        bool
	validationErr     string

	// cycle counts open cycles; async callbacks carry the cycle they were
	// armed in and are dropped when it no longer matches.
	cycle      int
	cancelLoad func()
}

// Snapshot is the widget state as presented to the client.
type Snapshot struct {
	Mode              Mode        `json:"mode"`
	Draft             model.Draft `json:"draft"`
	ScriptLoaded      bool        `json:"script_loaded"`
	ChallengeRendered bool        `json:"challenge_rendered"`
	HumanVerified     bool        `json:"human_verified"`
	LoadFailed        bool        `json:"load_failed,omitempty"`
	ValidationError   string      `json:"validation_error,omitempty"`
	SiteKey           string      `json:"site_key,omitempty"`
}

func NewWidget(provider Provider, siteKey string, card model.ContactCard) *Widget {
	return &Widget{
		provider: provider,
		siteKey:  siteKey,
		card:     card,
		mode:     Closed,
	}
}

// Mount marks the widget attached to a live rendering context. Until then
// every operation is a no-op and State reports a closed widget, so nothing
// interactive is rendered against a detached shell.
func (w *Widget) Mount() {
	w.mu.Lock()
	w.mounted = true
	w.mu.Unlock()
}

// Open transitions Closed -> Collecting and starts the challenge script
// load. Verification state is reset first, so a verification from a
// previous open cycle cannot be reused.
func (w *Widget) Open() {
	w.mu.Lock()
	if !w.mounted || w.mode != Closed {
		w.mu.Unlock()
		return
	}
	w.mode = Collecting
	w.resetVerification()
	w.cycle++
	cycle := w.cycle
	w.mu.Unlock()

	cancel := w.provider.Load(func(err error) {
		w.onScriptLoaded(cycle, err)
	})

	w.mu.Lock()
	if w.cycle == cycle && w.mode == Collecting {
		w.cancelLoad = cancel
		w.mu.Unlock()
		return
	}
	// closed (or reopened) while Load was starting
	w.mu.Unlock()
	cancel()
}

// onScriptLoaded is the load completion callback. The script element is
// removed whatever the outcome; UI state only changes if the widget is
// still in the same open cycle and still Collecting.
func (w *Widget) onScriptLoaded(cycle int, err error) {
	w.mu.Lock()
	remove := w.cancelLoad
	w.cancelLoad = nil
	w.mu.Unlock()
	if remove != nil {
		remove()
	}

	w.mu.Lock()
	if cycle != w.cycle || w.mode != Collecting {
		w.mu.Unlock()
		return
	}
	if err != nil {
		w.loadFailed = true
		w.mu.Unlock()
		return
	}
	w.scriptLoaded = true
	if w.challengeRendered {
		w.mu.Unlock()
		return
	}
	w.challengeRendered = true
	w.mu.Unlock()

	err = w.provider.Render(w.siteKey, func() {
		w.onVerified(cycle)
	})

	w.mu.Lock()
	if cycle != w.cycle || w.mode != Collecting {
		w.mu.Unlock()
		// Close won the race while Render was in flight; if the render
		// landed, it now occupies the container Close already reset.
		if err == nil {
			w.provider.Reset()
		}
		return
	}
	if err != nil {
		w.challengeRendered = false
		w.loadFailed = true
	}
	w.mu.Unlock()
}

// onVerified is the provider's success callback.
func (w *Widget) onVerified(cycle int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cycle != w.cycle || w.mode != Collecting {
		return
	}
	w.humanVerified = true
	w.validationErr = ""
}

// SetDraft replaces the in-progress lead information.
func (w *Widget) SetDraft(draft model.Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || w.mode != Collecting {
		return
	}
	w.draft = draft
}

// Submit validates the draft in fixed order (name, email, verification)
// and reveals the contact card when every check passes. On failure the
// widget stays in Collecting with a single human-readable message set.
// A repeat submit on an already revealed widget returns the same card.
func (w *Widget) Submit() (model.ContactCard, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted {
		return model.ContactCard{}, false
	}
	switch w.mode {
	case Revealed:
		return w.card, true
	case Collecting:
		// fall through to validation
	default:
		return model.ContactCard{}, false
	}

	name := strings.TrimSpace(w.draft.Name)
	switch {
	case utf8.RuneCountInString(name) < 2:
		w.validationErr = msgName
	case !emailPattern.MatchString(w.draft.Email):
		w.validationErr = msgEmail
	case !w.humanVerified:
		w.validationErr = msgVerification
	default:
		w.validationErr = ""
		w.mode = Revealed
		w.draft = model.Draft{} // discarded, never persisted
		return w.card, true
	}
	return model.ContactCard{}, false
}

// Close returns the widget to Closed from any state, clearing the draft,
// the validation message and all verification state. An in-flight script
// load is cancelled and the rendered challenge is reset.
func (w *Widget) Close() {
	w.mu.Lock()
	if !w.mounted || w.mode == Closed {
		w.mu.Unlock()
		return
	}
	w.mode = Closed
	w.draft = model.Draft{}
	w.validationErr = ""
	w.resetVerification()
	w.cycle++
	cancel := w.cancelLoad
	w.cancelLoad = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.provider.Reset()
}

func (w *Widget) resetVerification() {
	w.scriptLoaded = false
	w.challengeRendered = false
	w.humanVerified = false
	w.loadFailed = false
}

func (w *Widget) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return Closed
	}
	return w.mode
}

func (w *Widget) ValidationError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validationErr
}

func (w *Widget) State() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return Snapshot{Mode: Closed}
	}
	snap := Snapshot{
		Mode:              w.mode,
		Draft:             w.draft,
		ScriptLoaded:      w.scriptLoaded,
		ChallengeRendered: w.challengeRendered,
		HumanVerified:     w.humanVerified,
		LoadFailed:        w.loadFailed,
		ValidationError:   w.validationErr,
	}
	if w.mode == Collecting {
		snap.SiteKey = w.siteKey
	}
	return snap
}
