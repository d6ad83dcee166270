package app

import (
	"context"

	"farmops/db"

	"github.com/google/uuid"
)

// BootstrapFirstAdmin seeds the first admin account and prints a ready
// session token. The managed auth provider owns real logins; this exists so
// a fresh install is reachable at all.
func BootstrapFirstAdmin(ctx context.Context, a *App, repo *db.Repo) {
	if a.Config.BootstrapAdmin == "" {
		return
	}
	n, _ := repo.CountAdmins(ctx)
	if n > 0 {
		return
	}

	u, err := repo.FindOrCreateUser(ctx, a.Config.BootstrapAdmin, uuid.NewString())
	if err != nil {
		a.Log.Error("bootstrap admin failed", "err", err)
		return
	}
	if err := repo.SetUserAdmin(ctx, u.ID, true); err != nil {
		a.Log.Error("bootstrap admin flag failed", "err", err)
		return
	}

	token := uuid.NewString()
	if err := a.AppSessions().Create(ctx, token, u.ID); err != nil {
		a.Log.Error("bootstrap session failed", "err", err)
		return
	}
	a.Log.Info("[BOOTSTRAP] created first admin", "username", u.Username)
	a.Log.Info("[BOOTSTRAP] use this bearer token to get started", "token", token)
}
