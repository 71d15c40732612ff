package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headingStyle      = lipgloss.NewStyle().Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("214")).Bold(true)
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
     _       _         _ _
    (_) ___ | |__  ___(_) |_ ___
    | |/ _ \| '_ \/ __| | __/ _ \
    | | (_) | |_) \__ \ | ||  __/
   _/ |\___/|_.__/|___/_|\__\___|
  |__/
`

// Option is one pickable line. Label is shown, Value is returned.
type Option struct {
	Label string
	Value string
}

// Selection is what the menu resolved to. ProjectID and UserEmail are only
// set for CommandChecklist.
type Selection struct {
	Command   string
	ProjectID string
	UserEmail string
}

const CommandChecklist = "checklist"

type stage int

const (
	stageCommand stage = iota
	stageProject
	stageUser
)

// MenuModel picks a command when jobsite runs without arguments. Opening a
// checklist walks on to a project picker and then to the user to view it as.
type MenuModel struct {
	commands []Option
	projects []Option
	users    []Option

	stage    stage
	cursor   int
	sel      Selection
	quitting bool
}

// NewMenuModel offers the checklist entry only when there is a project to
// open and a user to open it as.
func NewMenuModel(projects, users []Option) MenuModel {
	commands := []Option{
		{Label: "status       workspace counts", Value: "status"},
		{Label: "projects     list projects", Value: "projects"},
		{Label: "serve        start the HTTP API", Value: "serve"},
		{Label: "init         set up this directory", Value: "init"},
	}
	if len(projects) > 0 && len(users) > 0 {
		commands = append([]Option{{Label: "checklist    open a project checklist", Value: CommandChecklist}}, commands...)
	}
	return MenuModel{commands: commands, projects: projects, users: users}
}

func (m MenuModel) options() []Option {
	switch m.stage {
	case stageProject:
		return m.projects
	case stageUser:
		return m.users
	}
	return m.commands
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		m.sel = Selection{}
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace":
		if m.stage > stageCommand {
			m.stage--
			m.cursor = 0
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.options())-1 {
			m.cursor++
		}

	case "enter":
		picked := m.options()[m.cursor].Value
		switch m.stage {
		case stageCommand:
			m.sel.Command = picked
			if picked != CommandChecklist {
				return m, tea.Quit
			}
			m.stage = stageProject
		case stageProject:
			m.sel.ProjectID = picked
			m.stage = stageUser
		case stageUser:
			m.sel.UserEmail = picked
			return m, tea.Quit
		}
		m.cursor = 0
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	switch m.stage {
	case stageCommand:
		s.WriteString(logoStyle.Render(logo))
	case stageProject:
		s.WriteString(headingStyle.Render("Which project?"))
	case stageUser:
		s.WriteString(headingStyle.Render("View the checklist as"))
	}
	s.WriteString("\n\n")

	for i, o := range m.options() {
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render(fmt.Sprintf("> %s", o.Label)))
		} else {
			s.WriteString(itemStyle.Render(fmt.Sprintf("  %s", o.Label)))
		}
		s.WriteString("\n")
	}

	hint := "j/k to move, enter to select, q to quit"
	if m.stage > stageCommand {
		hint = "j/k to move, enter to select, esc to go back, q to quit"
	}
	s.WriteString("\n" + hintStyle.Render(hint) + "\n")
	return s.String()
}

// Selection is complete once a command is chosen, and for checklists once
// the user is chosen too.
func (m MenuModel) Selection() Selection {
	if m.sel.Command == CommandChecklist && m.sel.UserEmail == "" {
		return Selection{}
	}
	return m.sel
}

func RunMenu(projects, users []Option) (Selection, error) {
	final, err := tea.NewProgram(NewMenuModel(projects, users)).Run()
	if err != nil {
		return Selection{}, err
	}
	return final.(MenuModel).Selection(), nil
}
