// Package theme holds the console palette and the exhaustive mappings from
// escalation priority and status to display colors.
package theme

import (
	"fmt"
	"sort"
	"strings"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

// Color is a semantic display color. Templates turn it into a CSS class.
type Color string

const (
	ColorDefault   Color = "default"
	ColorPrimary   Color = "primary"
	ColorSecondary Color = "secondary"
	ColorError     Color = "error"
	ColorWarning   Color = "warning"
	ColorInfo      Color = "info"
	ColorSuccess   Color = "success"
)

// Colors returns every semantic color.
func Colors() []Color {
	return []Color{ColorDefault, ColorPrimary, ColorSecondary, ColorError, ColorWarning, ColorInfo, ColorSuccess}
}

// Class returns the CSS class used for chips and badges of this color.
func (c Color) Class() string {
	return "chip-" + string(c)
}

// PriorityColor maps a priority to its chip color. Unknown priorities get
// ColorDefault.
func PriorityColor(p v1.Priority) Color {
	c, _ := lookupPriority(p)
	return c
}

// KnownPriority reports whether p has an explicit color.
func KnownPriority(p v1.Priority) bool {
	_, ok := lookupPriority(p)
	return ok
}

func lookupPriority(p v1.Priority) (Color, bool) {
	switch p {
	case v1.PriorityUrgent:
		return ColorError, true
	case v1.PriorityHigh:
		return ColorWarning, true
	case v1.PriorityMedium:
		return ColorInfo, true
	case v1.PriorityLow:
		return ColorDefault, true
	}
	return ColorDefault, false
}

// StatusColor maps a status to its chip color. Unknown statuses get
// ColorDefault.
func StatusColor(s v1.Status) Color {
	c, _ := lookupStatus(s)
	return c
}

// KnownStatus reports whether s has an explicit color.
func KnownStatus(s v1.Status) bool {
	_, ok := lookupStatus(s)
	return ok
}

func lookupStatus(s v1.Status) (Color, bool) {
	switch s {
	case v1.StatusPending:
		return ColorWarning, true
	case v1.StatusAssigned:
		return ColorInfo, true
	case v1.StatusInProgress:
		return ColorPrimary, true
	case v1.StatusResolved:
		return ColorSuccess, true
	case v1.StatusClosed:
		return ColorDefault, true
	}
	return ColorDefault, false
}

// Shade is the main/light/dark triple of a palette color.
type Shade struct {
	Main  string
	Light string
	Dark  string
}

// Palette is the full visual theme of the console.
type Palette struct {
	Primary      Shade
	Secondary    Shade
	Success      string
	Warning      string
	Error        string
	Info         string
	Background   string
	Paper        string
	FontFamily   string
	CardRadius   int
	ButtonRadius int
}

// Default returns the Kerala agriculture palette.
func Default() Palette {
	return Palette{
		Primary:      Shade{Main: "#2E7D32", Light: "#4CAF50", Dark: "#1B5E20"},
		Secondary:    Shade{Main: "#FFB300", Light: "#FFC107", Dark: "#FF8F00"},
		Success:      "#4CAF50",
		Warning:      "#FF9800",
		Error:        "#D32F2F",
		Info:         "#0288D1",
		Background:   "#F5F5F5",
		Paper:        "#FFFFFF",
		FontFamily:   `"Roboto", "Helvetica", "Arial", sans-serif`,
		CardRadius:   12,
		ButtonRadius: 8,
	}
}

// ColorValue returns the hex value behind a semantic color.
func (p Palette) ColorValue(c Color) string {
	switch c {
	case ColorPrimary:
		return p.Primary.Main
	case ColorSecondary:
		return p.Secondary.Main
	case ColorError:
		return p.Error
	case ColorWarning:
		return p.Warning
	case ColorInfo:
		return p.Info
	case ColorSuccess:
		return p.Success
	}
	return "#757575"
}

// CSSVariables renders the palette as custom properties for a :root block.
func (p Palette) CSSVariables() string {
	vars := map[string]string{
		"--color-primary-light":   p.Primary.Light,
		"--color-primary-dark":    p.Primary.Dark,
		"--color-secondary-light": p.Secondary.Light,
		"--color-secondary-dark":  p.Secondary.Dark,
		"--color-background":      p.Background,
		"--color-paper":           p.Paper,
		"--font-family":           p.FontFamily,
		"--radius-card":           fmt.Sprintf("%dpx", p.CardRadius),
		"--radius-button":         fmt.Sprintf("%dpx", p.ButtonRadius),
	}
	// Every chip class has a matching variable.
	for _, c := range Colors() {
		vars["--color-"+string(c)] = p.ColorValue(c)
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s;\n", name, vars[name])
	}
	return b.String()
}
