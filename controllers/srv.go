// controllers/srv.go
package controllers

import (
	"farmops/app"
	"farmops/db"
	"farmops/session"
)

// Srv 聚合控制器共享的依赖
type Srv struct {
	Repo    *db.Repo
	AppSess *session.AppSessionStore
	ReqIDs  *session.IdempotencyStore
	Log     *app.Logger
	Cfg     app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:    db.NewRepo(a.DB),
		AppSess: a.AppSessions(),
		ReqIDs:  a.RequestIDs(),
		Log:     a.Log,
		Cfg:     a.Config,
	}
}

func (s *Srv) AppSessions() *session.AppSessionStore { return s.AppSess }

// --- helpers ---

func currentUser(c *app.Ctx) (userID, username string) {
	if v, ok := c.Get("userID"); ok {
		userID, _ = v.(string)
	}
	if v, ok := c.Get("username"); ok {
		username, _ = v.(string)
	}
	return
}
