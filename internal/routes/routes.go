package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/casaflow/booking-service/internal/controllers"
	"github.com/casaflow/booking-service/internal/middleware"
)

const (
	RouteHealth = "/health"

	RouteBookings           = "/api/v1/bookings"
	RouteBookingsMy         = "/api/v1/bookings/my"
	RouteBookingsOwner      = "/api/v1/bookings/owner"
	RouteBookingsByProperty = "/api/v1/bookings/property/{id}"
	RouteBookingsByUnit     = "/api/v1/bookings/unit/{id}"
	RouteBookingByID        = "/api/v1/bookings/{id}"
	RouteBookingStatus      = "/api/v1/bookings/{id}/status"
	RouteBookingInvoices    = "/api/v1/bookings/{id}/invoices"

	RouteTenantRequests         = "/api/v1/tenant-requests"
	RouteTenantRequestsMy       = "/api/v1/tenant-requests/my"
	RouteTenantRequestsIncoming = "/api/v1/tenant-requests/incoming"
	RouteTenantRequestByID      = "/api/v1/tenant-requests/{id}"
	RouteTenantRequestStatus    = "/api/v1/tenant-requests/{id}/status"
	RouteTenantRequestSeen      = "/api/v1/tenant-requests/{id}/seen"

	RouteInvoicesMy    = "/api/v1/invoices/my"
	RouteInvoiceByID   = "/api/v1/invoices/{id}"
	RouteInvoiceStatus = "/api/v1/invoices/{id}/status"

	RouteAvailabilityUnit     = "/api/v1/availability/unit/{id}"
	RouteAvailabilityProperty = "/api/v1/availability/property/{id}"
)

type Controllers struct {
	Bookings       *controllers.BookingsController
	TenantRequests *controllers.TenantRequestsController
	Invoices       *controllers.InvoicesController
	Availability   *controllers.AvailabilityController
	Health         *controllers.HealthController
}

// NewRouter wires all endpoints. Everything under /api/v1 requires a
// valid token.
func NewRouter(c Controllers, jwtSecret string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(RouteHealth, c.Health.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	api.HandleFunc("/bookings", c.Bookings.Create).Methods(http.MethodPost)
	api.HandleFunc("/bookings/my", c.Bookings.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/bookings/owner", c.Bookings.ListOwner).Methods(http.MethodGet)
	api.HandleFunc("/bookings/property/{id}", c.Bookings.ListByProperty).Methods(http.MethodGet)
	api.HandleFunc("/bookings/unit/{id}", c.Bookings.ListByUnit).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", c.Bookings.Get).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", c.Bookings.UpdateFields).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id}/status", c.Bookings.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id}", c.Bookings.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/bookings/{id}/invoices", c.Invoices.ListByBooking).Methods(http.MethodGet)

	api.HandleFunc("/tenant-requests", c.TenantRequests.Create).Methods(http.MethodPost)
	api.HandleFunc("/tenant-requests/my", c.TenantRequests.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/tenant-requests/incoming", c.TenantRequests.ListIncoming).Methods(http.MethodGet)
	api.HandleFunc("/tenant-requests/{id}", c.TenantRequests.Get).Methods(http.MethodGet)
	api.HandleFunc("/tenant-requests/{id}/status", c.TenantRequests.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/tenant-requests/{id}/seen", c.TenantRequests.MarkSeen).Methods(http.MethodPatch)

	api.HandleFunc("/invoices/my", c.Invoices.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", c.Invoices.Get).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/status", c.Invoices.UpdateStatus).Methods(http.MethodPatch)

	api.HandleFunc("/availability/unit/{id}", c.Availability.CheckUnit).Methods(http.MethodGet)
	api.HandleFunc("/availability/property/{id}", c.Availability.CheckProperty).Methods(http.MethodGet)

	return r
}
