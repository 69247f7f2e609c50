package controllers

import (
	"net/http"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"

	"github.com/gin-gonic/gin"
)

// CatalogController serves locations and categories.
type CatalogController struct{ *Srv }

func NewCatalogController(s *Srv) *CatalogController { return &CatalogController{Srv: s} }

func (cc *CatalogController) CreateLocation(c *gin.Context) {
	var in db.LocationInput
	if !bind(c, &in) {
		return
	}
	loc, err := cc.Repo.CreateLocation(c.Request.Context(), in)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (cc *CatalogController) ListLocations(c *gin.Context) {
	ls, err := cc.Repo.ListLocations(c.Request.Context())
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}

func (cc *CatalogController) GetLocation(c *gin.Context) {
	loc, err := cc.Repo.GetLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (cc *CatalogController) CreateCategory(c *gin.Context) {
	var in db.CategoryInput
	if !bind(c, &in) {
		return
	}
	cat, err := cc.Repo.CreateCategory(c.Request.Context(), in)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (cc *CatalogController) ListCategories(c *gin.Context) {
	cs, err := cc.Repo.ListCategories(c.Request.Context())
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": cs})
}

func (cc *CatalogController) GetCategory(c *gin.Context) {
	cat, err := cc.Repo.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// PUT /api/categories/:id/parent {"parentId": null | "<uuid>"}
func (cc *CatalogController) SetCategoryParent(c *gin.Context) {
	var in struct {
		ParentID *string `json:"parentId" binding:"omitempty,uuid"`
	}
	if !bind(c, &in) {
		return
	}
	cat, err := cc.Repo.SetCategoryParent(c.Request.Context(), c.Param("id"), in.ParentID)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}
