// Package router wires handlers and middleware onto the Echo instance.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/handler"
    "github.com/iliyamo/cinema-booking-core/internal/middleware"
    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// Deps carries everything the routes need.  HoldLimit and SlotCache may be
// pass-through middleware when Redis is unavailable.
type Deps struct {
    JWTSecret string
    Seats     *handler.SeatHandler
    Purchases *handler.PurchaseHandler
    Schedule  *handler.ScheduleHandler
    HoldLimit echo.MiddlewareFunc
    SlotCache echo.MiddlewareFunc
}

// RegisterRoutes registers the health check and every /v1 route.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)

    // The seat map is public; a token, when sent, marks the caller's holds.
    e.GET("/v1/shows/:id/seats", d.Seats.SeatMap, middleware.OptionalJWTAuth(d.JWTSecret))

    registerSeats(e, d)
    registerPurchases(e, d)
    registerSchedule(e, d)
}

func registerSeats(e *echo.Echo, d Deps) {
    g := e.Group("/v1/shows/:id/seats/:row/:number", middleware.JWTAuth(d.JWTSecret), orPass(d.HoldLimit))
    g.POST("/hold", d.Seats.Hold)
    g.DELETE("/hold", d.Seats.Release)
}

func registerPurchases(e *echo.Echo, d Deps) {
    g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
    g.POST("/purchases", d.Purchases.CreatePurchase)
    g.GET("/purchases/:id", d.Purchases.GetPurchase)
    g.POST("/purchases/:id/tickets", d.Purchases.CreateTicket)
    g.POST("/purchases/:id/cancel", d.Purchases.CancelPurchase)
    g.DELETE("/tickets/:id", d.Purchases.DeleteTicket)
}

func registerSchedule(e *echo.Echo, d Deps) {
    auth := middleware.JWTAuth(d.JWTSecret)

    rooms := e.Group("/v1/rooms", auth, middleware.RequireRole(model.RoleAdmin, model.RoleCorporate))
    rooms.GET("/:id/availability", d.Schedule.Availability)
    rooms.GET("/:id/open-slots", d.Schedule.OpenSlots, orPass(d.SlotCache))

    screenings := e.Group("/v1/screenings", auth, middleware.RequireRole(model.RoleAdmin))
    screenings.POST("", d.Schedule.CreateScreening)
    screenings.PUT("/:id", d.Schedule.UpdateScreening)
    screenings.DELETE("/:id", d.Schedule.DeleteScreening)

    rentals := e.Group("/v1/rentals", auth, middleware.RequireRole(model.RoleAdmin, model.RoleCorporate))
    rentals.POST("", d.Schedule.CreateRental)
    rentals.PUT("/:id", d.Schedule.UpdateRental)
    rentals.DELETE("/:id", d.Schedule.DeleteRental)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
    if m == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return m
}
