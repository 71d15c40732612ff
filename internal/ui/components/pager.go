package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// Pager shows long rendered content in a scrollable viewport.
type Pager struct {
	viewport viewport.Model
	title    string
	content  string
	ready    bool
	quitting bool
}

func NewPager(title, content string) *Pager {
	return &Pager{title: title, content: content}
}

func (p *Pager) Init() tea.Cmd {
	return nil
}

func (p *Pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			p.quitting = true
			return p, tea.Quit
		}
	case tea.WindowSizeMsg:
		p.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// SetSize reserves one column for the scrollbar.
func (p *Pager) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !p.ready {
		p.viewport = viewport.New(vpWidth, height)
		p.ready = true
	} else {
		p.viewport.Width = vpWidth
		p.viewport.Height = height
	}
	p.viewport.SetContent(p.content)
}

func (p *Pager) View() string {
	if p.quitting {
		return ""
	}
	if !p.ready {
		return "loading..."
	}

	body := p.viewport.View()
	if p.viewport.TotalLineCount() > p.viewport.Height {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, p.scrollbar())
	}
	return pagerTitleStyle.Render(p.title) + "\n" + body + "\n" + helpStyle.Render("(j/k or arrows to scroll, q to quit)")
}

func (p *Pager) scrollbar() string {
	h := p.viewport.Height
	handlePos := int(float64(h-1) * p.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func RunPager(title, content string) error {
	_, err := tea.NewProgram(NewPager(title, content), tea.WithAltScreen()).Run()
	return err
}
