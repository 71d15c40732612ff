package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/blob"
	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/internal/config"
	"github.com/ldi/jobsite/internal/db"
	"github.com/ldi/jobsite/internal/events"
	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/internal/sitework"
	"github.com/ldi/jobsite/pkg/models"
)

// app holds the services one command invocation works with.
type app struct {
	cfg       *config.Config
	db        *db.DB
	bus       *events.Bus
	blobs     *blob.Store
	auth      *auth.Service
	checklist *checklist.Service
	site      *sitework.Service

	// ephemeralSecret is set when no auth.secret is configured; tokens and
	// signed URLs then die with the process.
	ephemeralSecret bool
	logs            io.Closer
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logs, err := logging.Init(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level, System: "jobsite"})
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logs.Close()
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		logs.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{cfg: cfg, db: database, logs: logs}

	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		a.ephemeralSecret = true
	}

	var hooks []db.ChangeFunc
	if cfg.Snapshots.Auto {
		hooks = append(hooks, database.SnapshotHook(cfg.Snapshots.Dir))
	}
	if cfg.Events.RedisAddr != "" {
		bus, err := events.NewBus(&redis.Options{Addr: cfg.Events.RedisAddr}, cfg.Events.Instance)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.bus = bus
		hooks = append(hooks, bus.Hook())
	}
	database.SetOnChange(fanOut(hooks))

	a.blobs, err = blob.NewStore(cfg.Blob.Root, blob.NewSigner(secret))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.auth = auth.NewService(database, auth.NewTokens(secret, cfg.Auth.TokenTTL))
	a.checklist = checklist.NewService(database, database)
	a.site = sitework.NewService(database, a.blobs, cfg.Blob.URLTTL)
	return a, nil
}

func fanOut(hooks []db.ChangeFunc) db.ChangeFunc {
	if len(hooks) == 0 {
		return nil
	}
	return func(ctx context.Context, c models.Change) {
		for _, h := range hooks {
			h(ctx, c)
		}
	}
}

func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	a.db.Close()
	a.logs.Close()
}

// actorFor resolves the --as email to the user the command acts for.
func (a *app) actorFor(ctx context.Context, email string) (models.Actor, error) {
	if email == "" {
		return models.Actor{}, fmt.Errorf("%w: this command needs --as <email>", models.ErrUnauthorized)
	}
	u, err := a.db.GetUserByEmail(ctx, email)
	if err != nil {
		return models.Actor{}, err
	}
	if u == nil {
		return models.Actor{}, fmt.Errorf("%w: no user with email %s", models.ErrUnauthorized, email)
	}
	return models.Actor{UserID: u.ID, Role: u.Role}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
