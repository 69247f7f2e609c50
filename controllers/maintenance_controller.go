package controllers

import (
	"net/http"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"

	"github.com/gin-gonic/gin"
)

type MaintenanceController struct{ *Srv }

func NewMaintenanceController(s *Srv) *MaintenanceController {
	return &MaintenanceController{Srv: s}
}

func (mc *MaintenanceController) Create(c *gin.Context) {
	var in db.MaintenanceInput
	if !bind(c, &in) {
		return
	}
	m, err := mc.Repo.CreateMaintenance(c.Request.Context(), app.ActorOf(c), in)
	if err != nil {
		mc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (mc *MaintenanceController) List(c *gin.Context) {
	ms, err := mc.Repo.ListMaintenance(c.Request.Context(), db.MaintenanceQuery{
		EquipmentID: c.Query("equipmentId"),
		Status:      c.Query("status"),
	})
	if err != nil {
		mc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ms})
}

func (mc *MaintenanceController) Start(c *gin.Context) {
	m, err := mc.Repo.StartMaintenance(c.Request.Context(), app.ActorOf(c), c.Param("id"))
	if err != nil {
		mc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (mc *MaintenanceController) Complete(c *gin.Context) {
	var in db.CompleteMaintenanceInput
	if !bindOptional(c, &in) {
		return
	}
	m, err := mc.Repo.CompleteMaintenance(c.Request.Context(), app.ActorOf(c), c.Param("id"), in)
	if err != nil {
		mc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (mc *MaintenanceController) Cancel(c *gin.Context) {
	m, err := mc.Repo.CancelMaintenance(c.Request.Context(), app.ActorOf(c), c.Param("id"))
	if err != nil {
		mc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
