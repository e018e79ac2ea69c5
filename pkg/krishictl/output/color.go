package output

import (
	"fmt"

	"github.com/fatih/color"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/theme"
)

// SetColorMode applies the color setting: auto, always or never. auto keeps
// the terminal detection of the color package.
func SetColorMode(mode string) error {
	switch mode {
	case "", "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("unknown color mode %q", mode)
	}
	return nil
}

var terminalColors = map[theme.Color]*color.Color{
	theme.ColorPrimary:   color.New(color.FgGreen),
	theme.ColorSecondary: color.New(color.FgHiYellow),
	theme.ColorError:     color.New(color.FgRed, color.Bold),
	theme.ColorWarning:   color.New(color.FgYellow),
	theme.ColorInfo:      color.New(color.FgCyan),
	theme.ColorSuccess:   color.New(color.FgHiGreen),
}

func paint(c theme.Color, s string) string {
	if tc, ok := terminalColors[c]; ok {
		return tc.Sprint(s)
	}
	return s
}

// Priority renders a priority label in its chip color, padded to width.
func Priority(p v1.Priority, width int) string {
	return paint(theme.PriorityColor(p), fmt.Sprintf("%-*s", width, p.Label()))
}

// Status renders a status label in its chip color, padded to width.
func Status(s v1.Status, width int) string {
	return paint(theme.StatusColor(s), fmt.Sprintf("%-*s", width, s.Label()))
}
