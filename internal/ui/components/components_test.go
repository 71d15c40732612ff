package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/pkg/models"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleView() *checklist.View {
	sections := []*models.Section{
		{ID: "s1", Phase: models.PhaseKickoff, Title: "Framing", SortOrder: 1},
		{ID: "s2", Phase: models.PhasePreCon, Title: "Permits", SortOrder: 1},
	}
	tasks := []*models.Task{
		{ID: "t1", SectionID: "s1", Title: "Framing inspection", SortOrder: 1, Status: models.TaskStatusPending, IsInspection: true},
		{ID: "t2", SectionID: "s1", Title: "Insulation", SortOrder: 2, Status: models.TaskStatusPending, AssigneeName: "Dana"},
		{ID: "t3", SectionID: "s2", Title: "Pull permit", SortOrder: 1, Status: models.TaskStatusCompleted},
	}
	return checklist.BuildView(&models.Project{Name: "Birch Way"}, nil, sections, tasks)
}

func TestChecklistRender(t *testing.T) {
	out := NewChecklist(sampleView(), 60).Render()

	for _, want := range []string{"Birch Way", "Pre-Con", "Kickoff", "Framing", "INSPECTION", "BLOCKED", "@Dana", `waiting on "Framing inspection"`, "✓ 1. Pull permit"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected render to contain %q\n%s", want, out)
		}
	}
	if strings.Index(out, "Pre-Con") > strings.Index(out, "Kickoff") {
		t.Error("expected phases in pre_con, kickoff, post_project order")
	}
	if strings.Contains(out, "Post Project") {
		t.Error("expected empty phases to be skipped")
	}
}

func TestChecklistRenderEmpty(t *testing.T) {
	out := NewChecklist(checklist.BuildView(&models.Project{Name: "Empty"}, nil, nil, nil), 40).Render()
	if !strings.Contains(out, "No checklist sections yet") {
		t.Errorf("expected placeholder, got %q", out)
	}
}

func TestPager(t *testing.T) {
	content := strings.Repeat("line\n", 50)
	p := NewPager("Checklist", content)

	if p.View() != "loading..." {
		t.Errorf("expected loading view before size is known")
	}

	model, _ := p.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	p = model.(*Pager)
	view := p.View()
	if !strings.Contains(view, "Checklist") || !strings.Contains(view, "┃") {
		t.Errorf("expected title and scrollbar, got %q", view)
	}

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command after 'q'")
	}
	if p.View() != "" {
		t.Error("expected empty view after quitting")
	}
}
