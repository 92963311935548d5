package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

// writeError maps the error taxonomy onto HTTP statuses. Not-found and
// mismatch are the caller's problem; store trouble is retryable.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""

	var coder appErrors.Coder
	if errors.As(err, &coder) {
		code = coder.Code()
		switch code {
		case appErrors.CodeCampaignNotFound, appErrors.CodeAccountNotFound, appErrors.CodeLeadNotFound:
			status = http.StatusNotFound
		case appErrors.CodePlatformMismatch:
			status = http.StatusConflict
		case appErrors.CodeStoreUnavailable:
			status = http.StatusServiceUnavailable
		}
	} else {
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	platform := r.URL.Query().Get("platform")
	status := r.URL.Query().Get("status")
	userID := r.URL.Query().Get("user_id")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), userID, page, pageSize, platform, status)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(details)
}

// AddLeads extends a campaign with more targets.
func (c *CampaignController) AddLeads(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Usernames []string `json:"usernames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	created, err := c.CampaignService.AddLeads(r.Context(), id, body.Usernames)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id":   id,
		"leads_created": created,
	})
}

func (c *CampaignController) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	accounts, err := c.CampaignService.ListAccounts(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"data": accounts})
}
