package web

import (
	"net/http"

	"github.com/campuseats/ordering/internal/telemetry"
)

// Routes mounts every handler on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(h.HandlePlaceSingle))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(h.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(h.HandleGet))
	mux.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(h.HandleCancel))
	mux.HandleFunc("PATCH /orders/{id}/delivery-date", telemetry.WithHTTPRoute(h.HandleUpdateDate))
	mux.HandleFunc("PATCH /orders/{id}/delivery-address", telemetry.WithHTTPRoute(h.HandleUpdateAddress))
	mux.HandleFunc("PATCH /orders/{id}/items", telemetry.WithHTTPRoute(h.HandleUpdateItems))
	mux.HandleFunc("POST /orders/{id}/join", telemetry.WithHTTPRoute(h.HandleJoin))
	mux.HandleFunc("POST /orders/{id}/delivery", telemetry.WithHTTPRoute(h.HandleStartDelivery))
	mux.HandleFunc("POST /orders/{id}/finish", telemetry.WithHTTPRoute(h.HandleComplete))

	mux.HandleFunc("POST /groups", telemetry.WithHTTPRoute(h.HandleCreateGroup))
	mux.HandleFunc("POST /groups/{id}/orders", telemetry.WithHTTPRoute(h.HandleAddToGroup))
	mux.HandleFunc("POST /buffets", telemetry.WithHTTPRoute(h.HandlePlaceBuffet))
	mux.HandleFunc("POST /afterworks", telemetry.WithHTTPRoute(h.HandlePlaceAfterWork))

	mux.HandleFunc("GET /restaurants", telemetry.WithHTTPRoute(h.HandleListRestaurants))
	mux.HandleFunc("POST /restaurants/{id}/prepare", telemetry.WithHTTPRoute(h.HandlePrepare))

	mux.HandleFunc("POST /customers", telemetry.WithHTTPRoute(h.HandleRegisterCustomer))
	mux.HandleFunc("GET /customers/{id}", telemetry.WithHTTPRoute(h.HandleGetCustomer))
	mux.HandleFunc("POST /agents", telemetry.WithHTTPRoute(h.HandleRegisterAgent))

	return mux
}
