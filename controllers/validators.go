package controllers

import (
	"sync"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the enum tags used by the request types to gin's
// validator engine.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("holdertype", func(fl validator.FieldLevel) bool {
			return lifecycle.HolderType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
			return lifecycle.Condition(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("maintenancetype", func(fl validator.FieldLevel) bool {
			return lifecycle.MaintenanceType(fl.Field().String()).Valid()
		})
	})
}
