package checklist

import "github.com/ldi/jobsite/pkg/models"

type BlockerRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskView is a task annotated with its gate state for display.
type TaskView struct {
	*models.Task
	Blocked   bool        `json:"blocked"`
	BlockedBy *BlockerRef `json:"blocked_by,omitempty"`
}

type SectionView struct {
	*models.Section
	Tasks []TaskView `json:"tasks"`
}

type View struct {
	Project  *models.Project `json:"project"`
	Phase    *models.Phase   `json:"phase,omitempty"`
	Sections []SectionView   `json:"sections"`
}

// Annotate marks each task that sits behind a pending inspection.
// tasks must all belong to one section and be ordered by sort_order.
func Annotate(tasks []*models.Task) []TaskView {
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = TaskView{Task: t}
		if b := Blocker(t, tasks); b != nil {
			views[i].Blocked = true
			views[i].BlockedBy = &BlockerRef{ID: b.ID, Title: b.Title}
		}
	}
	return views
}

// BuildView groups tasks under their sections. Sections keep the given order.
func BuildView(project *models.Project, phase *models.Phase, sections []*models.Section, tasks []*models.Task) *View {
	bySection := make(map[string][]*models.Task, len(sections))
	for _, t := range tasks {
		bySection[t.SectionID] = append(bySection[t.SectionID], t)
	}

	v := &View{Project: project, Phase: phase, Sections: make([]SectionView, 0, len(sections))}
	for _, s := range sections {
		v.Sections = append(v.Sections, SectionView{Section: s, Tasks: Annotate(bySection[s.ID])})
	}
	return v
}
