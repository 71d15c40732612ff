package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/internal/config"
	"github.com/ldi/jobsite/internal/events"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/internal/ui"
	"github.com/ldi/jobsite/pkg/models"
)

// workspace switches into a fresh directory holding a jobsite.yml whose
// paths all live inside it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := config.Default()
	cfg.Auth.Secret = "0123456789abcdef0123"
	cfg.Log.File = filepath.Join(dir, "logs", "jobsite.log")
	require.NoError(t, cfg.Write(filepath.Join(dir, config.DefaultPath)))
	return dir
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI and returns what it printed to stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true

	var out, errOut bytes.Buffer
	prevOut, prevErr := printer.Out, printer.Err
	printer.Out, printer.Err = &out, &errOut
	t.Cleanup(func() {
		printer.Out, printer.Err = prevOut, prevErr
	})

	if args == nil {
		args = []string{}
	}
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), errOut.String(), err
}

type seeded struct {
	projectID string
	section   *models.Section
	gate      *models.Task
	follow    *models.Task
}

// seed creates admin@example.com, foreman@example.com and a project whose
// framing section has an open inspection followed by one task.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()

	a, err := openApp(ctx)
	require.NoError(t, err)
	defer a.Close()

	admin, err := a.auth.Register(ctx, auth.NewUser{Email: "admin@example.com", Password: "password1", FullName: "Ada Admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = a.auth.Register(ctx, auth.NewUser{Email: "foreman@example.com", Password: "password1", FullName: "Finn Foreman", Role: models.RoleForeman})
	require.NoError(t, err)

	actor := models.Actor{UserID: admin.ID, Role: admin.Role}
	p, err := a.site.CreateProject(ctx, actor, &models.Project{Name: "Birch Way", Status: models.ProjectStatusActive})
	require.NoError(t, err)

	sec, err := a.checklist.CreateSection(ctx, actor, &models.Section{ProjectID: p.ID, Phase: models.PhaseKickoff, Title: "Framing"})
	require.NoError(t, err)
	gate, err := a.checklist.CreateTask(ctx, actor, &models.Task{SectionID: sec.ID, Title: "Framing inspection", IsInspection: true})
	require.NoError(t, err)
	follow, err := a.checklist.CreateTask(ctx, actor, &models.Task{SectionID: sec.ID, Title: "Hang drywall"})
	require.NoError(t, err)

	return seeded{projectID: p.ID, section: sec, gate: gate, follow: follow}
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	workspace(t)
	_, errOut, err := run(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
	assert.Contains(t, errOut, "unknown flag")
}

func TestRootCommand_RunsMenuSelection(t *testing.T) {
	workspace(t)
	original := runMenu
	t.Cleanup(func() { runMenu = original })

	runMenu = func(projects, users []ui.Option) (ui.Selection, error) {
		return ui.Selection{Command: "status"}, nil
	}
	out, _, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Jobsite Status")

	runMenu = func(projects, users []ui.Option) (ui.Selection, error) {
		return ui.Selection{}, nil
	}
	out, _, err = run(t)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRootCommand_MenuOpensChecklist(t *testing.T) {
	workspace(t)
	s := seed(t)

	originalMenu, originalPager := runMenu, runPager
	t.Cleanup(func() { runMenu, runPager = originalMenu, originalPager })

	var offered []ui.Option
	var offeredUsers []string
	runMenu = func(projects, users []ui.Option) (ui.Selection, error) {
		offered = projects
		for _, u := range users {
			offeredUsers = append(offeredUsers, u.Value)
		}
		return ui.Selection{Command: ui.CommandChecklist, ProjectID: s.projectID, UserEmail: "foreman@example.com"}, nil
	}
	var paged, content string
	runPager = func(title, body string) error {
		paged, content = title, body
		return nil
	}

	_, _, err := run(t)
	require.NoError(t, err)
	assert.Equal(t, []ui.Option{{Label: "Birch Way", Value: s.projectID}}, offered)
	assert.ElementsMatch(t, []string{"admin@example.com", "foreman@example.com"}, offeredUsers)
	assert.Equal(t, "Birch Way", paged)
	assert.Contains(t, content, "Framing inspection")
}

func TestMenuOptionsWithoutConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	prev := cfgPath
	cfgPath = config.DefaultPath
	t.Cleanup(func() { cfgPath = prev })

	projects, users := menuOptions(context.Background())
	assert.Nil(t, projects)
	assert.Nil(t, users)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, _, err := run(t, "init", "--admin-email", "admin@example.com", "--admin-password", "password1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created jobsite.yml")
	assert.Contains(t, out, "Created admin admin@example.com")

	content, err := os.ReadFile(filepath.Join(dir, ".jobsite", ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "jobsite.db*\n", string(content))
	assert.FileExists(t, filepath.Join(dir, ".jobsite", "jobsite.db"))

	out, _, err = run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "jobsite.yml already exists")
}

func TestUserAndProjectCommands(t *testing.T) {
	workspace(t)

	_, _, err := run(t, "user", "create", "--email", "admin@example.com", "--password", "password1", "--role", "admin", "--name", "Ada")
	require.NoError(t, err)
	_, _, err = run(t, "user", "create", "--email", "owner@example.com", "--password", "password1", "--role", "customer")
	require.NoError(t, err)

	out, _, err := run(t, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@example.com")
	assert.Contains(t, out, "customer")

	out, _, err = run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects yet")

	out, _, err = run(t, "projects", "create", "--as", "admin@example.com", "--name", "Birch Way", "--customer", "owner@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Created project Birch Way")

	out, _, err = run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Birch Way")

	_, _, err = run(t, "projects", "create", "--as", "owner@example.com", "--name", "Nope")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestChecklistShow(t *testing.T) {
	workspace(t)
	s := seed(t)

	out, _, err := run(t, "checklist", "show", s.projectID, "--as", "foreman@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Birch Way")
	assert.Contains(t, out, "Framing inspection")
	assert.Contains(t, out, "BLOCKED")

	_, _, err = run(t, "checklist", "show", s.projectID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, _, err = run(t, "checklist", "show", s.projectID, "--as", "foreman@example.com", "--phase", "demolition")
	assert.ErrorIs(t, err, models.ErrValidation)

	original := runPager
	t.Cleanup(func() { runPager = original })
	var paged string
	runPager = func(title, content string) error {
		paged = title
		return nil
	}
	_, _, err = run(t, "checklist", "show", s.projectID, "--as", "foreman@example.com", "--pager")
	require.NoError(t, err)
	assert.Equal(t, "Birch Way", paged)
}

func TestChecklistExport(t *testing.T) {
	dir := workspace(t)
	s := seed(t)
	path := filepath.Join(dir, "out.xlsx")

	out, _, err := run(t, "checklist", "export", s.projectID, "--as", "foreman@example.com", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported Birch Way checklist")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Kickoff", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Framing inspection", v)
}

func TestMaterialsImport(t *testing.T) {
	dir := workspace(t)
	s := seed(t)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"Material", "Quantity", "Unit", "Unit Cost"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"2x4 stud", 120, "ea", 4.25}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{"Drywall", 40, "sheet", 12}))
	path := filepath.Join(dir, "materials.xlsx")
	require.NoError(t, wb.SaveAs(path))

	out, _, err := run(t, "materials", "import", s.projectID, path, "--as", "foreman@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 materials")

	_, _, err = run(t, "materials", "import", s.projectID, filepath.Join(dir, "missing.xlsx"), "--as", "foreman@example.com")
	assert.Error(t, err)
}

func TestSnapshotExportImport(t *testing.T) {
	dir := workspace(t)
	s := seed(t)
	path := filepath.Join(dir, "framing.jsonl")

	_, _, err := run(t, "snapshot", "export", s.projectID, "-o", path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	ctx := context.Background()
	a, err := openApp(ctx)
	require.NoError(t, err)
	admin, err := a.db.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	target, err := a.site.CreateProject(ctx, models.Actor{UserID: admin.ID, Role: admin.Role}, &models.Project{Name: "Cedar Court"})
	require.NoError(t, err)
	a.Close()

	out, _, err := run(t, "snapshot", "import", target.ID, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported snapshot")

	a, err = openApp(ctx)
	require.NoError(t, err)
	defer a.Close()
	tasks, err := a.db.ListTasks(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Framing inspection", tasks[0].Title)
}

func TestAutoSnapshotWrittenOnChecklistWrites(t *testing.T) {
	dir := workspace(t)
	s := seed(t)

	assert.FileExists(t, filepath.Join(dir, ".jobsite", "snapshots", s.projectID+".jsonl"))
}

func TestReportErrorBlocked(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	prevOut, prevErr := printer.Out, printer.Err
	printer.Out, printer.Err = &out, &errOut
	defer func() { printer.Out, printer.Err = prevOut, prevErr }()

	reportError(&checklist.BlockedError{TaskID: "t2", BlockerID: "t1", BlockerTitle: "Framing inspection"})
	assert.Contains(t, errOut.String(), `blocked by pending inspection "Framing inspection"`)
	assert.Contains(t, out.String(), `Complete "Framing inspection" first`)

	errOut.Reset()
	reportError(errors.New("disk full"))
	assert.Contains(t, errOut.String(), "disk full")
}

func TestWatchNeedsRedis(t *testing.T) {
	workspace(t)
	_, _, err := run(t, "watch")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestStreamChangesFromCommittedWrites(t *testing.T) {
	dir := workspace(t)
	mr := miniredis.RunT(t)

	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)
	cfg.Events.RedisAddr = mr.Addr()
	require.NoError(t, cfg.Write(filepath.Join(dir, config.DefaultPath)))

	watcher, err := events.NewBus(&redis.Options{Addr: mr.Addr()}, cfg.Events.Instance)
	require.NoError(t, err)
	defer watcher.Close()
	sub, err := watcher.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	s := seed(t)
	require.NoError(t, watcher.Publish(context.Background(), models.Change{
		Collection: "projects", Op: models.ChangeInsert, ProjectID: "elsewhere", RecordID: "elsewhere",
	}))

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, streamChanges(ctx, sub, &out, s.projectID))

	assert.Contains(t, out.String(), "checklist_tasks")
	assert.Contains(t, out.String(), "record="+s.follow.ID)
	assert.NotContains(t, out.String(), "elsewhere")
}
