package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// In-memory fakes mirroring the SQL semantics: claim is a compare-and-set
// on assigned_account under one lock, the rate increment happens inside the
// store. Shared by the engine, lead store and rate counter tests.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// ---------- leads ----------

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*model.Lead
	next  int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[string]*model.Lead)}
}

func (r *fakeLeadRepo) seed(campaignID string, n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r.next++
		id := fmt.Sprintf("lead-%04d", r.next)
		r.leads[id] = &model.Lead{
			ID:         id,
			CampaignID: campaignID,
			Username:   fmt.Sprintf("user%04d", r.next),
			Type:       model.LeadTypeInitial,
			Status:     model.LeadStatusReady,
			BaseDate:   time.Now(),
			FollowUps:  model.FollowUps{},
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *fakeLeadRepo) sortedIDs() []string {
	ids := make([]string, 0, len(r.leads))
	for id := range r.leads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeadRepo) FetchReady(_ context.Context, campaignID, accountID string, limit int) ([]*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Lead{}
	for _, id := range r.sortedIDs() {
		l := r.leads[id]
		if l.CampaignID == campaignID && l.AssignedAccount == accountID && l.Status == model.LeadStatusReady {
			cp := *l
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) CountReadyAssigned(_ context.Context, campaignID, accountID string, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, l := range r.leads {
		if l.CampaignID == campaignID && l.AssignedAccount == accountID && l.Status == model.LeadStatusReady {
			count++
			if count == limit {
				break
			}
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) ClaimUnassigned(_ context.Context, campaignID, accountID string, n int, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := 0
	for _, id := range r.sortedIDs() {
		if claimed == n {
			break
		}
		l := r.leads[id]
		if l.CampaignID != campaignID || l.AssignedAccount != "" {
			continue
		}
		if l.Status != model.LeadStatusReady && l.Status != model.LeadStatusFailed {
			continue
		}
		l.AssignedAccount = accountID
		assignedAt := now
		l.AssignedAt = &assignedAt
		l.LastReassignedAt = &assignedAt
		claimed++
	}
	return claimed, nil
}

func (r *fakeLeadRepo) ReleaseAssigned(_ context.Context, campaignID, accountID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, l := range r.leads {
		if l.CampaignID != campaignID || l.AssignedAccount != accountID {
			continue
		}
		if l.Status != model.LeadStatusReady && l.Status != model.LeadStatusFailed {
			continue
		}
		prev := accountID
		l.AssignedAccount = ""
		l.PreviousAccount = &prev
		l.ReassignmentCount++
		l.Status = model.LeadStatusReady
		reassignedAt := now
		l.LastReassignedAt = &reassignedAt
		released++
	}
	return released, nil
}

func (r *fakeLeadRepo) CountReadyForAccount(_ context.Context, accountID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, l := range r.leads {
		if l.AssignedAccount == accountID && l.Status == model.LeadStatusReady {
			count++
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) BulkCreate(_ context.Context, campaignID string, usernames []string, now time.Time) ([]*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			seen[l.Username] = true
		}
	}
	created := []*model.Lead{}
	for _, u := range usernames {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		r.next++
		lead := &model.Lead{
			ID:         fmt.Sprintf("lead-%04d", r.next),
			CampaignID: campaignID,
			Username:   u,
			Type:       model.LeadTypeInitial,
			Status:     model.LeadStatusReady,
			BaseDate:   now,
			FollowUps:  model.FollowUps{},
		}
		r.leads[lead.ID] = lead
		cp := *lead
		created = append(created, &cp)
	}
	return created, nil
}

func (r *fakeLeadRepo) MarkResult(_ context.Context, leadID, status string, sent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[leadID]
	if !ok {
		return fmt.Errorf("lead %s missing", leadID)
	}
	l.Status = status
	l.Sent = sent
	return nil
}

func (r *fakeLeadRepo) UpdateFollowUps(_ context.Context, leadID string, followUps model.FollowUps) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[leadID]
	if !ok {
		return fmt.Errorf("lead %s missing", leadID)
	}
	l.FollowUps = followUps
	return nil
}

func (r *fakeLeadRepo) StatusCounts(_ context.Context, campaignID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := map[string]int{
		model.LeadStatusReady:   0,
		model.LeadStatusSending: 0,
		model.LeadStatusSent:    0,
		model.LeadStatusFailed:  0,
	}
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			stats[l.Status]++
		}
	}
	return stats, nil
}

// ---------- accounts ----------

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (r *fakeAccountRepo) add(a *model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

func (r *fakeAccountRepo) UpsertByWidget(_ context.Context, userID, widgetID, name, platform string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.UserID == userID && a.WidgetID == widgetID {
			a.Name = name
			cp := *a
			return &cp, nil
		}
	}
	a := &model.Account{
		ID:        fmt.Sprintf("acct-%s-%s", userID, widgetID),
		WidgetID:  widgetID,
		UserID:    userID,
		Name:      name,
		Platform:  platform,
		Status:    model.AccountStatusReady,
		CreatedAt: time.Now(),
	}
	r.accounts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetByWidgetID(_ context.Context, userID, widgetID string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.UserID == userID && a.WidgetID == widgetID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ListByUser(_ context.Context, userID string) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Account{}
	for _, a := range r.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[id]; ok {
		a.Status = status
	}
	return nil
}

func (r *fakeAccountRepo) SetCurrentCampaign(_ context.Context, id string, campaignID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[id]; ok {
		a.CurrentCampaignID = campaignID
	}
	return nil
}

func (r *fakeAccountRepo) SetPendingLeadsCount(_ context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[id]; ok {
		a.PendingLeadsCount = count
	}
	return nil
}

// ---------- campaigns ----------

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: make(map[string]*model.Campaign)}
}

func (r *fakeCampaignRepo) add(c *model.Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
}

func (r *fakeCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = fmt.Sprintf("camp-%d", len(r.campaigns)+1)
	}
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) List(_ context.Context, userID string, offset, limit int, platform, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *fakeCampaignRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) AddTotalLeads(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[id]; ok {
		c.TotalLeads += delta
	}
	return nil
}

func (r *fakeCampaignRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.campaigns, id)
	return nil
}

// ---------- rate records ----------

type fakeRateRepo struct {
	mu      sync.Mutex
	records map[string]*model.DailyRateRecord
}

func newFakeRateRepo() *fakeRateRepo {
	return &fakeRateRepo{records: make(map[string]*model.DailyRateRecord)}
}

func rateKey(accountID, day string) string {
	return accountID + "|" + day
}

func (r *fakeRateRepo) Seed(_ context.Context, accountID, day string, limits model.MessageLimits) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rateKey(accountID, day)
	if _, ok := r.records[key]; ok {
		return nil // create-if-absent
	}
	r.records[key] = &model.DailyRateRecord{
		AccountID:   accountID,
		Day:         day,
		MaxMessages: limits.Max,
		MinMessages: limits.Min,
	}
	return nil
}

func (r *fakeRateRepo) Get(_ context.Context, accountID, day string) (*model.DailyRateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[rateKey(accountID, day)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRateRepo) Increment(_ context.Context, accountID, day string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rateKey(accountID, day)
	rec, ok := r.records[key]
	if !ok {
		rec = &model.DailyRateRecord{AccountID: accountID, Day: day}
		r.records[key] = rec
	}
	rec.SentToday++
	sentAt := now
	rec.LastMessageAt = &sentAt
	return nil
}

// ---------- scheduled tasks ----------

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks []*model.ScheduledTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{}
}

func (r *fakeTaskRepo) Create(_ context.Context, task *model.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", len(r.tasks)+1)
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	cp := *task
	r.tasks = append(r.tasks, &cp)
	return nil
}

func (r *fakeTaskRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.ScheduledTask{}
	for _, t := range r.tasks {
		if t.Status == model.TaskStatusPending && !t.FireAfter.After(now) {
			t.Status = model.TaskStatusProcessing
			cp := *t
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) MarkDone(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		if t.ID == id {
			t.Status = model.TaskStatusDone
			doneAt := now
			t.DoneAt = &doneAt
		}
	}
	return nil
}

func (r *fakeTaskRepo) Requeue(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		if t.ID == id {
			t.Status = model.TaskStatusPending
		}
	}
	return nil
}
