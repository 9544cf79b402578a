// Package web is the HTTP front door over the ordering engine: thin
// handlers that decode, validate, delegate and translate errors.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuseats/ordering/internal/engine"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/restaurant"
	"github.com/campuseats/ordering/internal/schedule"
)

type Handler struct {
	engine   *engine.Engine
	waiter   restaurant.Waiter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds the handler set. The waiter stands in for the slot
// preparation delay when a kitchen is told to cook; the server passes a
// no-op so HTTP requests never block for a slot's duration.
func NewHandler(eng *engine.Engine, waiter restaurant.Waiter, logger *slog.Logger) *Handler {
	if waiter == nil {
		waiter = func(time.Duration) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   eng,
		waiter:   waiter,
		validate: validator.New(),
		logger:   logger,
	}
}

type itemLine struct {
	RestaurantID int64  `json:"restaurant_id" validate:"required,gt=0"`
	Menu         string `json:"menu" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

func toLines(lines []itemLine) []engine.ItemLine {
	out := make([]engine.ItemLine, len(lines))
	for i, line := range lines {
		out[i] = engine.ItemLine{RestaurantID: line.RestaurantID, MenuName: line.Menu, Quantity: line.Quantity}
	}
	return out
}

type orderView struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	CustomerID   int64     `json:"customer_id"`
	DeliveryDate time.Time `json:"delivery_date"`
	Address      string    `json:"address,omitempty"`
	ItemCount    int       `json:"item_count"`
	Total        float64   `json:"total"`
}

func viewOf(o order.Order) orderView {
	return orderView{
		ID:           o.ID(),
		Kind:         string(o.Kind()),
		Status:       string(o.Status()),
		CustomerID:   o.Customer().ID(),
		DeliveryDate: o.DeliveryDate(),
		Address:      o.DeliveryAddress(),
		ItemCount:    len(o.Items()),
		Total:        o.NonReducedTotalPrice(),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

type placeSingleRequest struct {
	CustomerID   int64      `json:"customer_id" validate:"required,gt=0"`
	DeliveryDate time.Time  `json:"delivery_date" validate:"required"`
	Address      string     `json:"address" validate:"required"`
	Items        []itemLine `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) HandlePlaceSingle(w http.ResponseWriter, r *http.Request) {
	var req placeSingleRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.engine.PlaceSingleOrder(r.Context(), req.CustomerID, req.DeliveryDate, req.Address, toLines(req.Items))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(o))
}

type createGroupRequest struct {
	CustomerID   int64     `json:"customer_id" validate:"required,gt=0"`
	DeliveryDate time.Time `json:"delivery_date" validate:"required"`
	Address      string    `json:"address" validate:"required"`
}

func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	g, err := h.engine.CreateGroupOrder(r.Context(), req.CustomerID, req.DeliveryDate, req.Address)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(g))
}

type placeBuffetRequest struct {
	CustomerID   int64      `json:"customer_id" validate:"required,gt=0"`
	DeliveryDate time.Time  `json:"delivery_date" validate:"required"`
	Address      string     `json:"address"`
	RestaurantID int64      `json:"restaurant_id" validate:"required,gt=0"`
	Items        []itemLine `json:"items" validate:"required,min=1,dive"`
	Delivered    bool       `json:"delivered"`
	Paid         bool       `json:"paid"`
}

func (h *Handler) HandlePlaceBuffet(w http.ResponseWriter, r *http.Request) {
	var req placeBuffetRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.engine.PlaceBuffetOrder(r.Context(), req.CustomerID, req.DeliveryDate, req.Address, req.RestaurantID, toLines(req.Items), req.Delivered, req.Paid)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(o))
}

type placeAfterWorkRequest struct {
	CustomerID   int64     `json:"customer_id" validate:"required,gt=0"`
	DeliveryDate time.Time `json:"delivery_date" validate:"required"`
	RestaurantID int64     `json:"restaurant_id" validate:"required,gt=0"`
	Participants int       `json:"participants" validate:"required,gt=0"`
	Venue        string    `json:"venue"`
}

func (h *Handler) HandlePlaceAfterWork(w http.ResponseWriter, r *http.Request) {
	var req placeAfterWorkRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.engine.PlaceAfterWorkOrder(r.Context(), req.CustomerID, req.DeliveryDate, req.RestaurantID, req.Participants, req.Venue)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(o))
}

type joinRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	parentID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.engine.JoinOrders(r.Context(), parentID, req.OrderID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(group))
}

func (h *Handler) HandleAddToGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.AddToGroupOrder(r.Context(), groupID, req.OrderID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.engine.Order(id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(o))
}

// HandleList serves per-customer queries and the ready-to-deliver feed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ready") == "true" {
		views := []orderView{}
		for _, o := range h.engine.OrdersReadyToDeliver() {
			views = append(views, viewOf(o))
		}
		h.writeJSON(w, http.StatusOK, views)
		return
	}

	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		h.writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	orders, err := h.engine.OrdersOfCustomer(customerID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	views := []orderView{}
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.CancelOrder(r.Context(), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateDateRequest struct {
	DeliveryDate time.Time `json:"delivery_date" validate:"required"`
}

func (h *Handler) HandleUpdateDate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateDateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpdateDeliveryDate(r.Context(), id, req.DeliveryDate); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateAddressRequest struct {
	Address string `json:"address" validate:"required"`
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateAddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpdateDeliveryAddress(r.Context(), id, req.Address); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateItemsRequest struct {
	Items []itemLine `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) HandleUpdateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateItemsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.UpdateItems(r.Context(), id, toLines(req.Items)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type startDeliveryRequest struct {
	AgentID int64 `json:"agent_id" validate:"required,gt=0"`
}

func (h *Handler) HandleStartDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req startDeliveryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.StartDelivery(r.Context(), id, req.AgentID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.CompleteOrder(r.Context(), id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type menuView struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	AfterWork bool    `json:"after_work"`
}

type restaurantView struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address,omitempty"`
	Menus   []menuView `json:"menus"`
}

func (h *Handler) HandleListRestaurants(w http.ResponseWriter, r *http.Request) {
	views := []restaurantView{}
	for _, rest := range h.engine.Restaurants().All() {
		view := restaurantView{ID: rest.ID(), Name: rest.Name(), Address: rest.Address(), Menus: []menuView{}}
		for _, menu := range rest.Menus() {
			view.Menus = append(view.Menus, menuView{Name: menu.Name(), Price: menu.GlobalPrice(), AfterWork: menu.AfterWork()})
		}
		views = append(views, view)
	}
	h.writeJSON(w, http.StatusOK, views)
}

// HandlePrepare triggers the kitchen to cook its nearest pending slot.
func (h *Handler) HandlePrepare(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	prepared, err := h.engine.PrepareNearestSlot(r.Context(), id, h.waiter)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"prepared": prepared})
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidArgument):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoCapacity),
		errors.Is(err, order.ErrOperationNotAllowed),
		errors.Is(err, order.ErrModificationNotAllowed),
		errors.Is(err, schedule.ErrUnpreparable):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
