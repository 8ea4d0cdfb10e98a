package ui

import "sync"

// Button is a labelled control that can be enabled, disabled, and pressed.
// Its state is guarded so hosts may render it from any goroutine, but only
// the UI goroutine should mutate it.
type Button struct {
	mu      sync.Mutex
	id      string
	label   string
	enabled bool
	onPress func()
}

// NewButton returns an enabled button.
func NewButton(id, label string, onPress func()) *Button {
	return &Button{id: id, label: label, enabled: true, onPress: onPress}
}

// ID identifies the button within a layout.
func (b *Button) ID() string {
	return b.id
}

// Label returns the current label.
func (b *Button) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

// SetLabel replaces the label.
func (b *Button) SetLabel(label string) {
	b.mu.Lock()
	b.label = label
	b.mu.Unlock()
}

// Enabled reports whether presses are accepted.
func (b *Button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetEnabled toggles whether presses are accepted.
func (b *Button) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
}

// Press invokes the handler if the button is enabled and reports whether it
// did.
func (b *Button) Press() bool {
	b.mu.Lock()
	enabled, handler := b.enabled, b.onPress
	b.mu.Unlock()
	if !enabled || handler == nil {
		return false
	}
	handler()
	return true
}

// Layout receives controls contributed to a host screen.
type Layout interface {
	AddControl(control *Button)
}
