// Package keymap defines the keybindings of the fleet dashboard.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/grovetools/fleetview/config"
)

// Dashboard is the keymap of the live view.
type Dashboard struct {
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	ZoomReset   key.Binding
	TogglePause key.Binding
	Refresh     key.Binding
	Predictions key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// Default returns the stock dashboard bindings.
func Default() Dashboard {
	return Dashboard{
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		ZoomReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset zoom"),
		),
		TogglePause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Predictions: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "predictions"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Load returns the default bindings with user overrides from the
// tui.keybindings section of the configuration applied:
//
//	tui:
//	  keybindings:
//	    toggle_pause: [space]
func Load(cfg *config.Config) Dashboard {
	km := Default()
	if cfg == nil {
		return km
	}

	var tuiCfg struct {
		Keybindings Overrides `yaml:"keybindings"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err != nil {
		return km
	}
	ApplyOverrides(&km, tuiCfg.Keybindings)
	return km
}

// ShortHelp returns the bindings shown in the footer.
func (k Dashboard) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePause, k.Refresh, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

// FullHelp returns the bindings grouped by section.
func (k Dashboard) FullHelp() [][]key.Binding {
	var groups [][]key.Binding
	for _, s := range k.Sections() {
		if !s.IsEmpty() {
			groups = append(groups, s.FilterEnabled())
		}
	}
	return groups
}

// Sections implements SectionedKeyMap.
func (k Dashboard) Sections() []Section {
	return []Section{
		NewSection(SectionView, k.ZoomIn, k.ZoomOut, k.ZoomReset),
		NewSection(SectionActions, k.TogglePause, k.Refresh, k.Predictions),
		NewSection(SectionSystem, k.Help, k.Quit),
	}
}
