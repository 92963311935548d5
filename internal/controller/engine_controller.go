package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach-backend/internal/service"
)

// EngineController exposes the assignment engine to the campaign runtime:
// start/pause a sender on a campaign, pull a batch, report a result.
type EngineController struct {
	CampaignService *service.CampaignService
	Engine          *service.AssignmentEngine
}

func (c *EngineController) Start(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var body struct {
		UserID   string `json:"user_id"`
		WidgetID string `json:"widget_id"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	account, err := c.CampaignService.StartByWidget(r.Context(), campaignID, body.UserID, body.WidgetID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"account":     account,
		"status":      "active",
	})
}

func (c *EngineController) Pause(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var body struct {
		UserID   string `json:"user_id"`
		WidgetID string `json:"widget_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	account, err := c.CampaignService.PauseByWidget(r.Context(), campaignID, body.UserID, body.WidgetID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"account_id":  account.ID,
		"status":      "paused",
	})
}

// FetchBatch returns up to a serve chunk of ready leads. Empty batches
// always carry a reason so pollers know how long to back off.
func (c *EngineController) FetchBatch(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	accountID := chi.URLParam(r, "accountId")

	batch, err := c.Engine.FetchBatch(r.Context(), campaignID, accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(batch)
}

func (c *EngineController) ReportResult(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var body struct {
		LeadID    string `json:"lead_id"`
		AccountID string `json:"account_id"`
		Outcome   string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Engine.ReportResult(r.Context(), body.LeadID, body.AccountID, campaignID, body.Outcome); err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
}
