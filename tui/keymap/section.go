package keymap

import "github.com/charmbracelet/bubbles/key"

// Standard section names used by the dashboard help view.
const (
	SectionView    = "View"
	SectionActions = "Actions"
	SectionSystem  = "System"
)

// Section groups keybindings under a heading for the full help view.
type Section struct {
	Name     string
	Bindings []key.Binding
}

// SectionedKeyMap is implemented by keymaps that organize their bindings into
// sections.
type SectionedKeyMap interface {
	Sections() []Section
}

// NewSection creates a section with the given name.
func NewSection(name string, bindings ...key.Binding) Section {
	return Section{Name: name, Bindings: bindings}
}

// FilterEnabled returns only the enabled bindings of the section.
func (s Section) FilterEnabled() []key.Binding {
	var enabled []key.Binding
	for _, b := range s.Bindings {
		if b.Enabled() {
			enabled = append(enabled, b)
		}
	}
	return enabled
}

// IsEmpty reports whether the section has no enabled bindings.
func (s Section) IsEmpty() bool {
	return len(s.FilterEnabled()) == 0
}
