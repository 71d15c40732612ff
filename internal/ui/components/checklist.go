package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	phaseHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	doneSectionStyle = sectionStyle.
				BorderForeground(lipgloss.Color("42"))

	blockedSectionStyle = sectionStyle.
				BorderForeground(lipgloss.Color("196"))

	sectionTitleStyle = lipgloss.NewStyle().Bold(true)

	blockedBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("196")).
				Padding(0, 1)

	inspectionBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var phaseTitles = map[models.Phase]string{
	models.PhasePreCon:      "Pre-Con",
	models.PhaseKickoff:     "Kickoff",
	models.PhasePostProject: "Post Project",
}

var statusIcons = map[models.TaskStatus]string{
	models.TaskStatusPending:    "○",
	models.TaskStatusInProgress: "◐",
	models.TaskStatusCompleted:  "✓",
	models.TaskStatusHoldPoint:  "■",
	models.TaskStatusInspection: "◆",
}

// Checklist renders a project checklist grouped by phase, one box per
// section. A section's border turns green when every task is completed and
// red while any task is blocked.
type Checklist struct {
	View  *checklist.View
	Width int
}

func NewChecklist(v *checklist.View, width int) *Checklist {
	return &Checklist{View: v, Width: width}
}

func (c *Checklist) Render() string {
	var out []string
	if c.View.Project != nil {
		out = append(out, sectionTitleStyle.Render(c.View.Project.Name))
	}

	for _, phase := range models.Phases {
		var boxes []string
		for _, sec := range c.View.Sections {
			if sec.Phase == phase {
				boxes = append(boxes, c.renderSection(sec))
			}
		}
		if len(boxes) == 0 {
			continue
		}
		out = append(out, phaseHeaderStyle.Render(phaseTitles[phase]))
		out = append(out, boxes...)
	}

	if len(out) <= 1 {
		out = append(out, mutedStyle.Render("No checklist sections yet"))
	}
	return strings.Join(out, "\n")
}

func (c *Checklist) renderSection(sec checklist.SectionView) string {
	style := sectionStyle
	done := len(sec.Tasks) > 0
	for _, t := range sec.Tasks {
		if t.Blocked {
			style = blockedSectionStyle
		}
		if t.Status != models.TaskStatusCompleted {
			done = false
		}
	}
	if done {
		style = doneSectionStyle
	}

	innerWidth := c.Width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	lines := []string{sectionTitleStyle.Render(sec.Title)}
	if len(sec.Tasks) == 0 {
		lines = append(lines, mutedStyle.Render("no tasks"))
	}
	for _, t := range sec.Tasks {
		lines = append(lines, c.renderTask(t, innerWidth)...)
	}

	if c.Width > 0 {
		style = style.Width(c.Width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (c *Checklist) renderTask(t checklist.TaskView, width int) []string {
	icon := statusIcons[t.Status]
	if icon == "" {
		icon = "?"
	}

	head := fmt.Sprintf("%s %d. %s", icon, t.SortOrder, t.Title)
	var tags []string
	if t.IsInspection {
		tags = append(tags, inspectionBadgeStyle.Render("INSPECTION"))
	}
	if t.AssigneeName != "" {
		tags = append(tags, mutedStyle.Render("@"+t.AssigneeName))
	}
	if t.Blocked {
		tags = append(tags, blockedBadgeStyle.Render("BLOCKED"))
	}
	if len(tags) > 0 {
		head += " " + strings.Join(tags, " ")
	}

	if width > 0 {
		head = lipgloss.NewStyle().Width(width).Render(head)
	}
	lines := []string{head}
	if t.BlockedBy != nil {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("   waiting on %q", t.BlockedBy.Title)))
	}
	return lines
}
