package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/internal/db"
	"github.com/ldi/jobsite/pkg/models"
)

const ServerName = "Jobsite"

// NewServer exposes the checklist as MCP tools. Every call acts as actor,
// with the same permissions that user has over HTTP.
func NewServer(database *db.DB, svc *checklist.Service, actor models.Actor, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version)

	// Checklist
	s.AddTool(mcp.NewTool("list_checklist",
		mcp.WithDescription("List a project's checklist sections and tasks. Each task reports whether a pending inspection blocks it."),
		mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
		mcp.WithString("phase", mcp.Description("Only this phase (pre_con|kickoff|post_project)")),
	), listChecklistHandler(svc, actor))

	s.AddTool(mcp.NewTool("create_section",
		mcp.WithDescription("Create a checklist section. Sections are appended to their phase unless sort_order is given."),
		mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
		mcp.WithString("phase", mcp.Description("Phase (pre_con|kickoff|post_project)"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Section title"), mcp.Required()),
		mcp.WithNumber("sort_order", mcp.Description("1-based position within the phase")),
		mcp.WithString("allowed_roles", mcp.Description("Comma-separated roles that see the section (default admin,foreman,employee)")),
	), createSectionHandler(svc, actor))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task in a section. Tasks are appended unless sort_order is given."),
		mcp.WithString("section_id", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithNumber("sort_order", mcp.Description("1-based position within the section")),
		mcp.WithString("status", mcp.Description("Initial status (default pending)")),
		mcp.WithBoolean("is_inspection", mcp.Description("Whether the task is an inspection gate")),
		mcp.WithBoolean("requires_picture", mcp.Description("Whether a photo is required")),
		mcp.WithString("assigned_to", mcp.Description("User ID of the assignee")),
	), createTaskHandler(svc, actor))

	s.AddTool(mcp.NewTool("update_task_status",
		mcp.WithDescription("Change a task's status. Refused while an earlier inspection in the section is not completed, except for moving back to pending."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("status", mcp.Description("New status (pending|in_progress|completed|hold_point|inspection)"), mcp.Required()),
	), updateTaskStatusHandler(svc, actor))

	s.AddTool(mcp.NewTool("assign_task",
		mcp.WithDescription("Assign a task to a user, or clear the assignee with an empty user_id."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("user_id", mcp.Description("User ID, empty to unassign")),
	), assignTaskHandler(svc, actor))

	s.AddTool(mcp.NewTool("reorder_tasks",
		mcp.WithDescription("Move a task within its section from one 0-based position to another and renumber the section."),
		mcp.WithString("section_id", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithNumber("from", mcp.Description("Current 0-based position"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("New 0-based position"), mcp.Required()),
	), reorderTasksHandler(svc, actor))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(svc, actor))

	// Staging Management
	s.AddTool(mcp.NewTool("stage_section",
		mcp.WithDescription("Propose a section. Changes are staged and must be committed to take effect."),
		mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
		mcp.WithString("phase", mcp.Description("Phase (pre_con|kickoff|post_project)"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Section title"), mcp.Required()),
		mcp.WithString("allowed_roles", mcp.Description("Comma-separated roles that see the section")),
		mcp.WithString("session_id", mcp.Description("Session ID for staging changes (defaults to 'default').")),
	), stageSectionHandler(database, actor))

	s.AddTool(mcp.NewTool("stage_task",
		mcp.WithDescription("Propose a task in an existing or staged section, named by section_title within phase. Changes are staged and must be committed to take effect."),
		mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
		mcp.WithString("phase", mcp.Description("Phase of the section"), mcp.Required()),
		mcp.WithString("section_title", mcp.Description("Section title"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithBoolean("is_inspection", mcp.Description("Whether the task is an inspection gate")),
		mcp.WithBoolean("requires_picture", mcp.Description("Whether a photo is required")),
		mcp.WithString("session_id", mcp.Description("Session ID for staging changes (defaults to 'default').")),
	), stageTaskHandler(database, actor))

	s.AddTool(mcp.NewTool("commit_staged_changes",
		mcp.WithDescription("Commit all staged changes for a session. This applies all proposed sections and tasks at once."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), commitStagedChangesHandler(database, actor))

	s.AddTool(mcp.NewTool("list_staged_changes",
		mcp.WithDescription("List all staged changes for a session. Use this to review a proposed checklist before committing."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), listStagedChangesHandler(database))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// reorderFailed reports a failed reorder together with the stored order, so
// the caller can redraw from what was actually saved.
func reorderFailed(err error, current []*models.Task) (*mcp.CallToolResult, error) {
	data, merr := json.Marshal(map[string]any{"error": err.Error(), "current": current})
	if merr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := mcp.NewToolResultText(string(data))
	result.IsError = true
	return result, nil
}

func parseRoles(raw string) ([]models.Role, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var roles []models.Role
	for _, part := range strings.Split(raw, ",") {
		r := models.Role(strings.TrimSpace(part))
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", r)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func listChecklistHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := mcp.ParseString(request, "project_id", "")
		var phase *models.Phase
		if p := mcp.ParseString(request, "phase", ""); p != "" {
			ph := models.Phase(p)
			phase = &ph
		}

		view, err := svc.Checklist(ctx, actor, projectID, phase)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(view)
	}
}

func createSectionHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		roles, err := parseRoles(mcp.ParseString(request, "allowed_roles", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		sec, err := svc.CreateSection(ctx, actor, &models.Section{
			ProjectID:    mcp.ParseString(request, "project_id", ""),
			Phase:        models.Phase(mcp.ParseString(request, "phase", "")),
			Title:        mcp.ParseString(request, "title", ""),
			SortOrder:    mcp.ParseInt(request, "sort_order", 0),
			AllowedRoles: roles,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(sec)
	}
}

func createTaskHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t := &models.Task{
			SectionID:       mcp.ParseString(request, "section_id", ""),
			Title:           mcp.ParseString(request, "title", ""),
			Description:     mcp.ParseString(request, "description", ""),
			SortOrder:       mcp.ParseInt(request, "sort_order", 0),
			Status:          models.TaskStatus(mcp.ParseString(request, "status", "")),
			IsInspection:    mcp.ParseBoolean(request, "is_inspection", false),
			RequiresPicture: mcp.ParseBoolean(request, "requires_picture", false),
		}
		if assignee := mcp.ParseString(request, "assigned_to", ""); assignee != "" {
			t.AssignedTo = &assignee
		}

		created, err := svc.CreateTask(ctx, actor, t)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(created)
	}
}

func updateTaskStatusHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		status := models.TaskStatus(mcp.ParseString(request, "status", ""))

		t, err := svc.UpdateTaskStatus(ctx, actor, id, status)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func assignTaskHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		var userID *string
		if u := mcp.ParseString(request, "user_id", ""); u != "" {
			userID = &u
		}

		t, err := svc.AssignTask(ctx, actor, id, userID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func reorderTasksHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sectionID := mcp.ParseString(request, "section_id", "")
		from := mcp.ParseInt(request, "from", 0)
		to := mcp.ParseInt(request, "to", 0)

		tasks, err := svc.ReorderTasks(ctx, actor, sectionID, from, to)
		if err != nil {
			if tasks == nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return reorderFailed(err, tasks)
		}
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func deleteTaskHandler(svc *checklist.Service, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		if err := svc.DeleteTask(ctx, actor, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Task deleted successfully"), nil
	}
}

// stagedProject checks the actor may build a checklist for the project.
func stagedProject(ctx context.Context, database *db.DB, actor models.Actor, projectID string) error {
	if !actor.Role.IsManager() {
		return fmt.Errorf("%w: role %q may not create checklist items", models.ErrForbidden, actor.Role)
	}
	p, err := database.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("project %s: %w", projectID, models.ErrNotFound)
	}
	return nil
}

func stageSectionHandler(database *db.DB, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := mcp.ParseString(request, "project_id", "")
		sessionID := mcp.ParseString(request, "session_id", "default")
		if err := stagedProject(ctx, database, actor, projectID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		roles, err := parseRoles(mcp.ParseString(request, "allowed_roles", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if roles == nil {
			roles = append(roles, models.DefaultSectionRoles...)
		}
		sec := &models.Section{
			ProjectID:    projectID,
			Phase:        models.Phase(mcp.ParseString(request, "phase", "")),
			Title:        mcp.ParseString(request, "title", ""),
			AllowedRoles: roles,
		}
		if err := sec.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		database.Staging.AddSection(sessionID, sec)
		return mcp.NewToolResultText(fmt.Sprintf("Section '%s' staged for session '%s'. Propose another or call 'commit_staged_changes' to apply.", sec.Title, sessionID)), nil
	}
}

func stageTaskHandler(database *db.DB, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := mcp.ParseString(request, "project_id", "")
		sessionID := mcp.ParseString(request, "session_id", "default")
		if err := stagedProject(ctx, database, actor, projectID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		phase := models.Phase(mcp.ParseString(request, "phase", ""))
		sectionTitle := mcp.ParseString(request, "section_title", "")
		title := mcp.ParseString(request, "title", "")
		if !phase.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("invalid phase %q", phase)), nil
		}
		if strings.TrimSpace(sectionTitle) == "" || strings.TrimSpace(title) == "" {
			return mcp.NewToolResultError("section_title and title are required"), nil
		}

		database.Staging.AddTask(sessionID, &db.StagedTask{
			Task: &models.Task{
				ProjectID:       projectID,
				Title:           title,
				Description:     mcp.ParseString(request, "description", ""),
				Status:          models.TaskStatusPending,
				IsInspection:    mcp.ParseBoolean(request, "is_inspection", false),
				RequiresPicture: mcp.ParseBoolean(request, "requires_picture", false),
			},
			Phase:        phase,
			SectionTitle: sectionTitle,
		})
		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' staged under '%s' for session '%s'. Propose another or call 'commit_staged_changes' to apply.", title, sectionTitle, sessionID)), nil
	}
}

func commitStagedChangesHandler(database *db.DB, actor models.Actor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		if !actor.Role.IsManager() {
			return mcp.NewToolResultError(fmt.Sprintf("role %q may not commit checklist changes", actor.Role)), nil
		}

		items, err := database.CommitBatch(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Staged changes for session '%s' committed successfully (%d sections, %d tasks)", sessionID, len(items.Sections), len(items.Tasks))), nil
	}
}

func listStagedChangesHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		return jsonResult(database.Staging.Peek(sessionID))
	}
}
