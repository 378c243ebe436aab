package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/campaign"
	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/storage"
	"crm-segment-engine/internal/translate"
)

// Repository is the slice of the store the API depends on; tests substitute
// a mock.
type Repository interface {
	CreateShop(ctx context.Context, sh *storage.Shop) error
	ListShops(ctx context.Context, email string) ([]storage.Shop, error)
	DeleteShop(ctx context.Context, id string) (bool, error)
	CreateCustomer(ctx context.Context, c segment.Customer) error
	FetchCustomers(ctx context.Context, shop string) ([]segment.Customer, error)
	CreateOrder(ctx context.Context, o *storage.Order) error
	ListOrders(ctx context.Context, shop string) ([]storage.Order, error)
	AppendCampaignLog(ctx context.Context, shop string, records []segment.MessageRecord) error
	FetchCampaignLog(ctx context.Context, shop string) ([]segment.MessageRecord, error)
}

type Handler struct {
	Store   Repository
	Cache   *storage.CustomerCache
	Engines *segment.Manager
	NL      *translate.Service
	Sender  *campaign.Sender
}

func NewHandler(store Repository, cache *storage.CustomerCache, engines *segment.Manager, nl *translate.Service, sender *campaign.Sender) *Handler {
	return &Handler{Store: store, Cache: cache, Engines: engines, NL: nl, Sender: sender}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// customers reads through the cache, falling back to the store on a miss.
func (h *Handler) customers(ctx context.Context, shop string) ([]segment.Customer, error) {
	if cs, ok := h.Cache.Get(shop); ok {
		return cs, nil
	}
	cs, err := h.Store.FetchCustomers(ctx, shop)
	if err != nil {
		return nil, err
	}
	h.Cache.Update(shop, cs)
	return cs, nil
}

func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var sh storage.Shop
	if err := json.NewDecoder(r.Body).Decode(&sh); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if sh.Email == "" || sh.Name == "" {
		writeError(w, http.StatusBadRequest, "email and name are required")
		return
	}
	if err := h.Store.CreateShop(r.Context(), &sh); err != nil {
		log.Error().Err(err).Msg("create shop")
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	shops, err := h.Store.ListShops(r.Context(), email)
	if err != nil {
		log.Error().Err(err).Msg("list shops")
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	writeJSON(w, http.StatusOK, shops)
}

func (h *Handler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.Store.DeleteShop(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("delete shop")
		writeError(w, http.StatusInternalServerError, "failed to delete campaign")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c segment.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if c.OwnerCampaign == "" || c.Email == "" {
		writeError(w, http.StatusBadRequest, "ownerCampaign and email are required")
		return
	}
	if err := h.Store.CreateCustomer(r.Context(), c); err != nil {
		log.Error().Err(err).Msg("create customer")
		writeError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}
	h.Cache.Invalidate(c.OwnerCampaign)
	// keep any live engine's base in step without waiting for the listener
	if cs, err := h.Store.FetchCustomers(r.Context(), c.OwnerCampaign); err == nil {
		h.Cache.Update(c.OwnerCampaign, cs)
		h.Engines.Rebase(c.OwnerCampaign, cs)
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	cs, err := h.customers(r.Context(), shop)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("list customers")
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var o storage.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if o.Shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	if err := h.Store.CreateOrder(r.Context(), &o); err != nil {
		log.Error().Err(err).Msg("create order")
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	orders, err := h.Store.ListOrders(r.Context(), shop)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("list orders")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) CampaignLog(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	records, err := h.Store.FetchCampaignLog(r.Context(), shop)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("fetch campaign log")
		writeError(w, http.StatusInternalServerError, "failed to fetch campaign log")
		return
	}
	writeJSON(w, http.StatusOK, records)
}
