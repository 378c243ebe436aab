package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/observability"
	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/translate"
)

type viewResponse struct {
	Mode      string             `json:"mode"`
	Count     int                `json:"count"`
	Customers []segment.Customer `json:"customers"`
}

// engine resolves the per-shop segment engine, loading customers on first
// use.
func (h *Handler) engine(r *http.Request, shop string) (*segment.Engine, error) {
	return h.Engines.Engine(shop, func() ([]segment.Customer, error) {
		return h.customers(r.Context(), shop)
	})
}

func (h *Handler) viewOf(e *segment.Engine) viewResponse {
	view := e.View()
	return viewResponse{Mode: e.Mode().String(), Count: len(view), Customers: view}
}

func (h *Handler) ApplyToggles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shop    string          `json:"shop"`
		Toggles segment.Toggles `json:"toggles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shop == "" {
		writeError(w, http.StatusBadRequest, "shop and toggles are required")
		return
	}
	e, err := h.engine(r, req.Shop)
	if err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("load segment engine")
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	e.ApplyToggles(req.Toggles)
	observability.SegmentRecomputes.WithLabelValues("toggles").Inc()
	writeJSON(w, http.StatusOK, h.viewOf(e))
}

func (h *Handler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shop  string          `json:"shop"`
		Rules segment.RuleSet `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shop == "" {
		writeError(w, http.StatusBadRequest, "shop and rules are required")
		return
	}
	e, err := h.engine(r, req.Shop)
	if err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("load segment engine")
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	if err := e.ApplyRuleSet(req.Rules); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	observability.SegmentRecomputes.WithLabelValues("ruleset").Inc()
	writeJSON(w, http.StatusOK, h.viewOf(e))
}

func (h *Handler) ClearSegment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shop string `json:"shop"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	e, err := h.engine(r, req.Shop)
	if err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("load segment engine")
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	e.Clear()
	observability.SegmentRecomputes.WithLabelValues("none").Inc()
	writeJSON(w, http.StatusOK, h.viewOf(e))
}

func (h *Handler) SegmentView(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "shop is required")
		return
	}
	e, err := h.engine(r, shop)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("load segment engine")
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	writeJSON(w, http.StatusOK, h.viewOf(e))
}

// GenerateSegment runs the NL prompt through the translator, validates the
// produced rules, and applies them. A malformed translation leaves the
// current view untouched and returns the raw text for fallback display.
func (h *Handler) GenerateSegment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shop   string `json:"shop"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shop == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "shop and prompt are required")
		return
	}

	seg, raw, err := h.NL.GenerateSegment(r.Context(), req.Prompt)
	if err != nil {
		observability.TranslationFailures.Inc()
		if errors.Is(err, translate.ErrTranslationParse) {
			log.Warn().Err(err).Msg("unparseable translation")
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "could not translate the description into segment rules",
				"raw":   raw,
			})
			return
		}
		log.Error().Err(err).Msg("translator call failed")
		writeError(w, http.StatusBadGateway, "translation service unavailable")
		return
	}

	e, err := h.engine(r, req.Shop)
	if err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("load segment engine")
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	if err := e.ApplyRuleSet(seg.Rules); err != nil {
		// validated at parse time; a failure here means the field set changed
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	observability.SegmentRecomputes.WithLabelValues("ruleset").Inc()

	view := h.viewOf(e)
	writeJSON(w, http.StatusOK, map[string]any{
		"description": seg.Description,
		"rules":       seg.Rules,
		"mode":        view.Mode,
		"count":       view.Count,
		"customers":   view.Customers,
	})
}
