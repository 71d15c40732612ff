package db

import (
	"sync"

	"github.com/ldi/jobsite/pkg/models"
)

// StagedTask is a task whose section may not exist yet. When Task.SectionID
// is empty it is resolved by SectionTitle within Phase at commit time.
type StagedTask struct {
	Task         *models.Task `json:"task"`
	Phase        models.Phase `json:"phase"`
	SectionTitle string       `json:"section_title"`
}

type StagedItems struct {
	Sections []*models.Section `json:"sections"`
	Tasks    []*StagedTask     `json:"tasks"`
}

func newStagedItems() *StagedItems {
	return &StagedItems{
		Sections: []*models.Section{},
		Tasks:    []*StagedTask{},
	}
}

// StagingManager provides thread-safe in-memory storage for staged changes.
type StagingManager struct {
	mu     sync.RWMutex
	staged map[string]*StagedItems
}

func NewStagingManager() *StagingManager {
	return &StagingManager{
		staged: make(map[string]*StagedItems),
	}
}

func (sm *StagingManager) items(sessionID string) *StagedItems {
	if sm.staged[sessionID] == nil {
		sm.staged[sessionID] = newStagedItems()
	}
	return sm.staged[sessionID]
}

func (sm *StagingManager) AddSection(sessionID string, section *models.Section) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	items := sm.items(sessionID)
	items.Sections = append(items.Sections, section)
}

func (sm *StagingManager) AddTask(sessionID string, task *StagedTask) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	items := sm.items(sessionID)
	items.Tasks = append(items.Tasks, task)
}

func (sm *StagingManager) GetAndClear(sessionID string) *StagedItems {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	items, ok := sm.staged[sessionID]
	if !ok {
		return newStagedItems()
	}

	delete(sm.staged, sessionID)
	return items
}

func (sm *StagingManager) Peek(sessionID string) *StagedItems {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	items, ok := sm.staged[sessionID]
	if !ok {
		return newStagedItems()
	}

	return items
}
