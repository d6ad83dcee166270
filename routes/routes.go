package routes

import (
	"net/http"
	"time"

	"farmops/app"
	"farmops/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s.Repo, s.AppSess, a.Config)
	toolCtl := controllers.NewToolController(s)
	coCtl := controllers.NewCheckoutController(s)
	ciCtl := controllers.NewCheckinController(s)
	issueCtl := controllers.NewIssueController(s)
	actionCtl := controllers.NewActionController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.AppSess, s.Repo, a.Config)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// 会话
	// ------------------------------
	auth := r.Group("/auth", authMW)
	{
		auth.GET("/whoami", func(c *app.Ctx) {
			uid, _ := c.Get("userID")
			username, _ := c.Get("username")
			isAdmin, _ := c.Get("isAdmin")
			c.JSON(http.StatusOK, app.H{
				"userID":   uid,
				"username": username,
				"isAdmin":  isAdmin,
			})
		})
		auth.POST("/logout", func(c *app.Ctx) {
			h := c.GetHeader("Authorization")
			const prefix = "Bearer "
			if len(h) > len(prefix) {
				_ = s.AppSessions().Delete(c.Request.Context(), h[len(prefix):])
			}
			c.JSON(http.StatusOK, app.H{"ok": true})
		})
	}

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := r.Group("/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers)
		users.GET("/:id", uc.GetUser)
		users.DELETE("/:id", uc.DeleteUser)
	}

	// ------------------------------
	// 资产 registry
	// ------------------------------
	tools := r.Group("/tools", authMW, seenMW)
	{
		tools.GET("", toolCtl.ListTools)
		tools.GET("/:id", toolCtl.GetTool)
		tools.PUT("/:id", toolCtl.UpdateTool)
		tools.GET("/:id/checkins", ciCtl.ListToolCheckins)
	}
	toolsAdmin := r.Group("/tools", authMW, adminMW)
	{
		toolsAdmin.POST("", toolCtl.CreateTool)
	}

	parts := r.Group("/parts", authMW, seenMW)
	{
		parts.GET("", toolCtl.ListParts)
		parts.POST("", toolCtl.CreatePart)
		parts.PUT("/:id/quantity", toolCtl.AdjustPart)
	}

	// ------------------------------
	// Checkout / Check-in 生命周期
	// ------------------------------
	checkouts := r.Group("/checkouts", authMW, seenMW)
	{
		checkouts.GET("", coCtl.ListCheckouts)
		checkouts.POST("", coCtl.CreateCheckout)
		checkouts.PUT("/:id", coCtl.UpdateCheckout)
		checkouts.DELETE("/:id", coCtl.CancelCheckout)
	}
	checkins := r.Group("/checkins", authMW, seenMW)
	{
		checkins.POST("", ciCtl.CreateCheckin)
	}

	// ------------------------------
	// Issues
	// ------------------------------
	issues := r.Group("/issues", authMW, seenMW)
	{
		issues.GET("", issueCtl.ListIssues)
		issues.POST("", issueCtl.CreateIssue)
		issues.PUT("/:id", issueCtl.UpdateIssue)
		issues.GET("/:id/history", issueCtl.IssueHistory)
	}

	// ------------------------------
	// Actions / Missions / Explorations
	// ------------------------------
	actions := r.Group("/actions", authMW, seenMW)
	{
		actions.GET("", actionCtl.ListActions)
		actions.POST("", actionCtl.CreateAction)
		actions.GET("/:id", actionCtl.GetAction)
		actions.PUT("/:id", actionCtl.UpdateAction)
		actions.POST("/:id/start", actionCtl.StartAction)
		actions.POST("/:id/tools", coCtl.AttachTool)
		actions.DELETE("/:id/tools/:toolId", coCtl.DetachTool)
		actions.POST("/:id/updates", actionCtl.AddUpdate)
		actions.GET("/:id/updates", actionCtl.ListUpdates)
		actions.DELETE("/:id/updates/:updateId", actionCtl.DeleteUpdate)
	}
}
