package routes

import (
	"net/http"
	"time"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	controllers.RegisterValidators()

	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	userCtl := controllers.NewUserController(s)
	catCtl := controllers.NewCatalogController(s)
	eqCtl := controllers.NewEquipmentController(s)
	loanCtl := controllers.NewLoanController(s)
	mtCtl := controllers.NewMaintenanceController(s)
	resCtl := controllers.NewReservationController(s)

	authMW := app.AuthRequired(s.AppSessions(), s.Repo)
	managerMW := app.ManagerOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// Session
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", authCtl.Login)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/whoami", authMW, seenMW, authCtl.WhoAmI)
	}

	api := r.Group("/api", authMW, seenMW)
	mgr := api.Group("", managerMW)

	// ------------------------------
	// Users and partners
	// ------------------------------
	{
		mgr.POST("/users", userCtl.CreateUser)
		mgr.GET("/users", userCtl.ListUsers) // ?q=&page=&size=
		mgr.GET("/users/:id", userCtl.GetUser)
		mgr.POST("/users/:id/access-key", userCtl.ResetAccessKey)
		mgr.PUT("/users/:id/manager", userCtl.SetManager)

		api.GET("/partners", userCtl.ListPartners)
		mgr.POST("/partners", userCtl.CreatePartner)
	}

	// ------------------------------
	// Locations and categories
	// ------------------------------
	{
		api.GET("/locations", catCtl.ListLocations)
		api.GET("/locations/:id", catCtl.GetLocation)
		mgr.POST("/locations", catCtl.CreateLocation)

		api.GET("/categories", catCtl.ListCategories)
		api.GET("/categories/:id", catCtl.GetCategory)
		mgr.POST("/categories", catCtl.CreateCategory)
		mgr.PUT("/categories/:id/parent", catCtl.SetCategoryParent)
	}

	// ------------------------------
	// Equipment
	// ------------------------------
	{
		api.GET("/equipment", eqCtl.ListEquipment)
		api.GET("/equipment/:id", eqCtl.GetEquipment)
		api.GET("/equipment/:id/assignments", eqCtl.ListAssignments)
		api.GET("/equipment/:id/messages", eqCtl.ListMessages)
		api.POST("/equipment/:id/borrow", eqCtl.Borrow)

		mgr.POST("/equipment", eqCtl.CreateEquipment)
		mgr.PATCH("/equipment/:id", eqCtl.UpdateEquipment)
		mgr.POST("/equipment/:id/assign", eqCtl.Assign)
		mgr.POST("/equipment/:id/unassign", eqCtl.Unassign)
		mgr.POST("/equipment/:id/move", eqCtl.Move)
		mgr.POST("/equipment/:id/retire", eqCtl.Retire())
		mgr.POST("/equipment/:id/lost", eqCtl.MarkLost())
		mgr.POST("/equipment/:id/found", eqCtl.MarkFound())
		mgr.POST("/equipment/:id/archive", eqCtl.Archive())
	}

	// ------------------------------
	// Loans
	// ------------------------------
	{
		api.POST("/loans", loanCtl.CreateLoan)
		api.GET("/loans", loanCtl.ListLoans) // ?status=&equipmentId=&borrowerId=
		api.GET("/loans/:id", loanCtl.GetLoan)
		api.GET("/loans/:id/messages", loanCtl.ListMessages)
		api.POST("/loans/:id/submit", loanCtl.Submit())
		api.POST("/loans/:id/cancel", loanCtl.Cancel())

		mgr.POST("/loans/:id/issue", loanCtl.Issue())
		mgr.POST("/loans/:id/return", loanCtl.Return)
		mgr.POST("/loans/:id/approve", loanCtl.Approve())
		mgr.POST("/loans/:id/reject", loanCtl.Reject)
		mgr.POST("/loans/sweep", loanCtl.Sweep)
	}

	// ------------------------------
	// Maintenance
	// ------------------------------
	{
		api.GET("/maintenance", mtCtl.List)
		api.POST("/maintenance", mtCtl.Create)
		api.POST("/maintenance/:id/start", mtCtl.Start)
		api.POST("/maintenance/:id/complete", mtCtl.Complete)
		api.POST("/maintenance/:id/cancel", mtCtl.Cancel)
	}

	// ------------------------------
	// Reservations
	// ------------------------------
	{
		api.POST("/reservations", resCtl.Create)
		api.GET("/reservations", resCtl.List)
		api.GET("/reservations/:id", resCtl.Get)
		api.POST("/reservations/:id/submit", resCtl.Submit())
		api.POST("/reservations/:id/confirm", resCtl.Confirm())
		api.POST("/reservations/:id/cancel", resCtl.Cancel())

		mgr.POST("/reservations/:id/approve", resCtl.Approve())
		mgr.POST("/reservations/:id/reject", resCtl.Reject())
	}
}
