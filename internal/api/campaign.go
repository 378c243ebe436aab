package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/observability"
	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/translate"
)

// SendCampaign delivers a message to the current filtered view, optionally
// narrowed to an explicit email selection within it.
func (h *Handler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shop    string   `json:"shop"`
		Emails  []string `json:"emails"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
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

	recipients := e.View()
	if len(req.Emails) > 0 {
		selected := map[string]bool{}
		for _, email := range req.Emails {
			selected[email] = true
		}
		filtered := recipients[:0]
		for _, c := range recipients {
			if selected[c.Email] {
				filtered = append(filtered, c)
			}
		}
		recipients = filtered
	}
	if len(recipients) == 0 {
		writeError(w, http.StatusBadRequest, "no recipients in the current segment")
		return
	}

	records, err := h.Sender.Send(r.Context(), req.Shop, req.Subject, req.Body, recipients)
	if err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("send campaign")
		writeError(w, http.StatusInternalServerError, "failed to send campaign")
		return
	}

	sent, failed := 0, 0
	for _, rec := range records {
		if rec.Status == segment.StatusSent {
			sent++
		} else {
			failed++
		}
		observability.MessagesSent.WithLabelValues(rec.Status).Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sent":    sent,
		"failed":  failed,
		"records": records,
	})
}

// SuggestMessages asks the translator for candidate messages matching a
// campaign objective. Unparseable output is recoverable: the raw text is
// returned for fallback display, same as segment generation.
func (h *Handler) SuggestMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Objective string `json:"objective"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Objective == "" {
		writeError(w, http.StatusBadRequest, "objective is required")
		return
	}

	sg, raw, err := h.NL.SuggestMessages(r.Context(), req.Objective)
	if err != nil {
		observability.TranslationFailures.Inc()
		if errors.Is(err, translate.ErrTranslationParse) {
			log.Warn().Err(err).Msg("unparseable message suggestions")
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "could not generate message suggestions for the objective",
				"raw":   raw,
			})
			return
		}
		log.Error().Err(err).Msg("translator call failed")
		writeError(w, http.StatusBadGateway, "translation service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, sg)
}

// CampaignInsights computes the numeric aggregates and, when the
// translator cooperates, a narrative summary. Translator failures degrade
// to numbers-only output.
func (h *Handler) CampaignInsights(w http.ResponseWriter, r *http.Request) {
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
	customers, err := h.customers(r.Context(), shop)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("fetch customers")
		writeError(w, http.StatusInternalServerError, "failed to fetch customers")
		return
	}

	stats := segment.Summarize(records, customers, time.Now())

	narrative := ""
	if len(records) > 0 {
		narrative, err = h.NL.Narrative(r.Context(), translate.InsightPrompt(stats))
		if err != nil {
			observability.TranslationFailures.Inc()
			log.Warn().Err(err).Msg("insight narrative unavailable")
			narrative = ""
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":        stats,
		"deliveryRate": segment.FormatRate(stats.DeliveryRate),
		"narrative":    narrative,
	})
}
