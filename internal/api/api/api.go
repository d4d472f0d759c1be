package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"eventtracker/cmd/middleware"
	"eventtracker/internal/auth"
	"eventtracker/internal/service"
)

type Routers struct {
	Service service.Service
	Tokens  *auth.TokenParser
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New(corsConfig()))
	app.Use(middleware.Authenticate(r.Tokens))
	apiGroup := app.Group("/v1")

	apiGroup.POST("/session", r.Service.SignIn)
	apiGroup.DELETE("/session", r.Service.SignOut)
	apiGroup.GET("/me", r.Service.Me)

	apiGroup.GET("/events", r.Service.GetEvents)
	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.PUT("/events/:id", r.Service.UpdateEvent)
	apiGroup.DELETE("/events/:id", r.Service.DeleteEvent)
	apiGroup.GET("/events/:id/venues", r.Service.GetEventVenues)

	apiGroup.GET("/venues", r.Service.GetVenues)
	apiGroup.POST("/venues", r.Service.CreateVenue)
	apiGroup.PUT("/venues/:id", r.Service.UpdateVenue)
	apiGroup.DELETE("/venues/:id", r.Service.DeleteVenue)

	apiGroup.GET("/participants", r.Service.GetParticipants)
	apiGroup.POST("/participants", r.Service.CreateParticipant)
	apiGroup.PUT("/participants/:id", r.Service.UpdateParticipant)
	apiGroup.DELETE("/participants/:id", r.Service.DeleteParticipant)
	apiGroup.GET("/participants/:id/qr", r.Service.GetParticipantQR)

	apiGroup.GET("/attendance", r.Service.GetAttendance)
	apiGroup.POST("/attendance", r.Service.MarkAttendance)
	apiGroup.POST("/attendance/checkout", r.Service.CheckOut)
	apiGroup.POST("/attendance/scan", r.Service.Scan)
	apiGroup.DELETE("/attendance/:id", r.Service.DeleteAttendance)

	apiGroup.GET("/roles", r.Service.GetRoles)
	apiGroup.POST("/roles", r.Service.CreateRole)
	apiGroup.PUT("/roles/:id", r.Service.UpdateRole)
	apiGroup.DELETE("/roles/:id", r.Service.DeleteRole)

	apiGroup.GET("/reports/summary", r.Service.Summary)
	apiGroup.GET("/reports/attendance.csv", r.Service.AttendanceCSV)
	apiGroup.GET("/dashboard", r.Service.Dashboard)

	apiGroup.GET("/backup", r.Service.ExportBackup)
	apiGroup.POST("/backup", r.Service.ImportBackup)
	apiGroup.DELETE("/backup", r.Service.ClearData)

	return app
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AddAllowHeaders("Authorization")
	cfg.AddExposeHeaders("Content-Disposition")
	return cfg
}
