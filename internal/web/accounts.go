package web

import (
	"net/http"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
)

type registerCustomerRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Tier      string `json:"tier"`
}

type customerView struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Tier   string  `json:"tier"`
	Credit float64 `json:"credit"`
}

func viewOfCustomer(c *account.Customer) customerView {
	return customerView{ID: c.ID(), Name: c.FullName(), Tier: string(c.Tier()), Credit: c.Credit()}
}

func (h *Handler) HandleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	customer, err := h.engine.Accounts().RegisterCustomer(req.FirstName, req.LastName, domain.Tier(req.Tier))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOfCustomer(customer))
}

func (h *Handler) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	customer, found := h.engine.Accounts().Customer(id)
	if !found {
		h.writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	h.writeJSON(w, http.StatusOK, viewOfCustomer(customer))
}

type registerAgentRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

func (h *Handler) HandleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if !h.decode(w, r, &req) {
		return
	}
	agent, err := h.engine.Accounts().RegisterAgent(req.FirstName, req.LastName)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"id": agent.ID(), "name": agent.FullName()})
}
