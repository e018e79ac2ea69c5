package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

func TestPriorityColor(t *testing.T) {
	want := map[v1.Priority]Color{
		v1.PriorityUrgent: ColorError,
		v1.PriorityHigh:   ColorWarning,
		v1.PriorityMedium: ColorInfo,
		v1.PriorityLow:    ColorDefault,
	}
	for _, p := range v1.Priorities() {
		t.Run(string(p), func(t *testing.T) {
			expected, ok := want[p]
			assert.True(t, ok, "priority %q has no expected color", p)
			assert.Equal(t, expected, PriorityColor(p))
			assert.True(t, KnownPriority(p))
		})
	}
}

func TestStatusColor(t *testing.T) {
	want := map[v1.Status]Color{
		v1.StatusPending:    ColorWarning,
		v1.StatusAssigned:   ColorInfo,
		v1.StatusInProgress: ColorPrimary,
		v1.StatusResolved:   ColorSuccess,
		v1.StatusClosed:     ColorDefault,
	}
	for _, s := range v1.Statuses() {
		t.Run(string(s), func(t *testing.T) {
			expected, ok := want[s]
			assert.True(t, ok, "status %q has no expected color", s)
			assert.Equal(t, expected, StatusColor(s))
			assert.True(t, KnownStatus(s))
		})
	}
}

func TestUnknownValuesDegradeToDefault(t *testing.T) {
	assert.Equal(t, ColorDefault, PriorityColor("critical"))
	assert.False(t, KnownPriority("critical"))
	assert.Equal(t, ColorDefault, StatusColor("archived"))
	assert.False(t, KnownStatus("archived"))
}

func TestPaletteCSSVariables(t *testing.T) {
	p := Default()
	css := p.CSSVariables()
	assert.Contains(t, css, "--color-primary: #2E7D32;")
	assert.Contains(t, css, "--color-secondary: #FFB300;")
	assert.Contains(t, css, "--color-error: #D32F2F;")
	assert.Contains(t, css, "--radius-card: 12px;")
	for _, c := range Colors() {
		assert.Contains(t, css, "--color-"+string(c)+": ", c)
	}
	assert.Contains(t, css, "--color-default: #757575;")
	assert.Contains(t, css, "--radius-button: 8px;")
	assert.Contains(t, css, "Roboto")
	assert.Equal(t, css, Default().CSSVariables(), "output must be stable")
}

func TestColorValueCoversEveryColor(t *testing.T) {
	p := Default()
	for _, c := range Colors() {
		assert.NotEmpty(t, p.ColorValue(c), c)
		assert.Equal(t, "chip-"+string(c), c.Class())
	}
	assert.Equal(t, "#0288D1", p.ColorValue(ColorInfo))
}
