package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the room.
var (
	ColorRed    = lipgloss.Color("#FF5F5F")
	ColorGreen  = lipgloss.Color("#5FD787")
	ColorYellow = lipgloss.Color("#FFD75F")
	ColorCyan   = lipgloss.Color("#5FD7FF")
	ColorIndigo = lipgloss.Color("#8787FF")
	ColorGray   = lipgloss.Color("#767676")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LiveDotStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	FinishingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorRed).
			Padding(0, 1)

	QuestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	CandidateLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorIndigo)

	InterviewerLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorGreen)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)
