package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/config"
)

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ZoomIn", "zoom_in"},
		{"TogglePause", "toggle_pause"},
		{"Quit", "quit"},
		{"A", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, camelToSnake(tt.input))
		})
	}
}

type embeddedKeyMap struct {
	Dashboard
	Export      key.Binding
	unexported  key.Binding
	NotABinding string
}

func TestApplyOverrides(t *testing.T) {
	km := embeddedKeyMap{
		Dashboard:   Default(),
		Export:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		unexported:  key.NewBinding(key.WithKeys("x")),
		NotABinding: "kept",
	}

	ApplyOverrides(&km, Overrides{
		"toggle_pause":  {"space", "P"},
		"export":        {"E"},
		"unexported":    {"y"},
		"not_a_binding": {"z"},
		"refresh":       {},
	})

	assert.Equal(t, []string{"space", "P"}, km.TogglePause.Keys())
	assert.Equal(t, "pause/resume", km.TogglePause.Help().Desc)
	assert.Equal(t, "space/P", km.TogglePause.Help().Key)
	assert.Equal(t, []string{"E"}, km.Export.Keys())
	assert.Equal(t, []string{"x"}, km.unexported.Keys())
	assert.Equal(t, "kept", km.NotABinding)
	assert.Equal(t, []string{"r"}, km.Refresh.Keys(), "empty override is ignored")
}

func TestApplyOverridesIgnoresNonPointers(t *testing.T) {
	km := Default()
	ApplyOverrides(km, Overrides{"quit": {"x"}})
	assert.Equal(t, []string{"q", "ctrl+c"}, km.Quit.Keys())
}

func TestLoadFromConfig(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte("tui:\n  keybindings:\n    zoom_in: [\"ctrl+up\"]\n"))
	require.NoError(t, err)

	km := Load(cfg)
	assert.Equal(t, []string{"ctrl+up"}, km.ZoomIn.Keys())
	assert.Equal(t, Default().ZoomOut.Keys(), km.ZoomOut.Keys())

	assert.Equal(t, Default().Quit.Keys(), Load(nil).Quit.Keys())
}

func TestSectionsAndHelp(t *testing.T) {
	km := Default()
	km.Predictions.SetEnabled(false)

	sections := km.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, SectionView, sections[0].Name)
	assert.Len(t, sections[1].FilterEnabled(), 2)

	full := km.FullHelp()
	require.Len(t, full, 3)
	assert.Len(t, full[1], 2)
	assert.Len(t, km.ShortHelp(), 6)

	empty := NewSection("Empty", key.NewBinding(key.WithDisabled()))
	assert.True(t, empty.IsEmpty())
}
