// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App    lipgloss.Style
	Header lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style

	// ==========================================================================
	// BLOCK STYLES
	// ==========================================================================

	Heading1      lipgloss.Style
	Heading2      lipgloss.Style
	Heading3      lipgloss.Style
	Paragraph     lipgloss.Style
	Blockquote    lipgloss.Style
	ListBullet    lipgloss.Style
	ThematicBreak lipgloss.Style

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style

	DiagramBox     lipgloss.Style
	DiagramPending lipgloss.Style
	DiagramFailed  lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableBorder lipgloss.Style

	InlineBold   lipgloss.Style
	InlineItalic lipgloss.Style
	InlineCode   lipgloss.Style
	InlineLink   lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	Spinner        lipgloss.Style
	NoticeWarn     lipgloss.Style
	NoticeError    lipgloss.Style
}

// NewTheme builds the theme for the current terminal.
func NewTheme(width, height int) *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		Width:        width,
		Height:       height,
	}
	t.build()
	return t
}

// Resize updates layout-dependent styles after a terminal resize.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
	t.build()
}

func (t *Theme) build() {
	t.App = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Header = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		Padding(0, 1)

	bubbleWidth := t.Width - 4
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MaxWidth(bubbleWidth)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MaxWidth(bubbleWidth)

	t.Heading1 = lipgloss.NewStyle().Foreground(Purple).Bold(true).Underline(true)
	t.Heading2 = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.Heading3 = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Paragraph = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Blockquote = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.ListBullet = lipgloss.NewStyle().Foreground(Cyan)
	t.ThematicBreak = lipgloss.NewStyle().Foreground(Overlay)

	t.CodeBlock = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Padding(0, 1).
		Bold(true)

	t.DiagramBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Emerald).
		Padding(0, 1)
	t.DiagramPending = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.DiagramFailed = lipgloss.NewStyle().Foreground(Rose)

	t.TableHeader = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.TableCell = lipgloss.NewStyle().Foreground(TextPrimary)
	t.TableBorder = lipgloss.NewStyle().Foreground(Overlay)

	t.InlineBold = lipgloss.NewStyle().Bold(true)
	t.InlineItalic = lipgloss.NewStyle().Italic(true)
	t.InlineCode = lipgloss.NewStyle().Foreground(Amber).Background(SurfaceDim)
	t.InlineLink = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.NoticeWarn = lipgloss.NewStyle().Foreground(Amber)
	t.NoticeError = lipgloss.NewStyle().Foreground(Rose).Bold(true)
}
