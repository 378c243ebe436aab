package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-segment-engine/internal/campaign"
	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/storage"
	"crm-segment-engine/internal/translate"
)

type mockRepo struct {
	customers map[string][]segment.Customer
	log       map[string][]segment.MessageRecord
	shops     []storage.Shop
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		customers: map[string][]segment.Customer{},
		log:       map[string][]segment.MessageRecord{},
	}
}

func (m *mockRepo) CreateShop(_ context.Context, sh *storage.Shop) error {
	sh.ID = "shop-id"
	m.shops = append(m.shops, *sh)
	return nil
}

func (m *mockRepo) ListShops(_ context.Context, email string) ([]storage.Shop, error) {
	var out []storage.Shop
	for _, sh := range m.shops {
		if sh.Email == email {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (m *mockRepo) DeleteShop(_ context.Context, id string) (bool, error) {
	for i, sh := range m.shops {
		if sh.ID == id {
			m.shops = append(m.shops[:i], m.shops[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CreateCustomer(_ context.Context, c segment.Customer) error {
	m.customers[c.OwnerCampaign] = append(m.customers[c.OwnerCampaign], c)
	return nil
}

func (m *mockRepo) FetchCustomers(_ context.Context, shop string) ([]segment.Customer, error) {
	return m.customers[shop], nil
}

func (m *mockRepo) CreateOrder(_ context.Context, o *storage.Order) error { return nil }

func (m *mockRepo) ListOrders(_ context.Context, shop string) ([]storage.Order, error) {
	return nil, nil
}

func (m *mockRepo) AppendCampaignLog(_ context.Context, shop string, records []segment.MessageRecord) error {
	m.log[shop] = append(m.log[shop], records...)
	return nil
}

func (m *mockRepo) FetchCampaignLog(_ context.Context, shop string) ([]segment.MessageRecord, error) {
	return m.log[shop], nil
}

type stubTranslator struct{ reply string }

func (s *stubTranslator) Translate(_ context.Context, _ string) (string, error) {
	return s.reply, nil
}

func newTestHandler(repo *mockRepo, reply string) *Handler {
	nl := translate.NewService(&stubTranslator{reply: reply}, translate.NewMemoryCache(time.Minute))
	sender := campaign.NewSender(campaign.NewSimulatedVendor(1, 1.0), repo)
	return NewHandler(repo, storage.NewCustomerCache(), segment.NewManager(), nl, sender)
}

func seedCustomers(repo *mockRepo, shop string) {
	now := time.Now()
	repo.customers[shop] = []segment.Customer{
		{Name: "A", Email: "a@x.com", Spends: 12000, Visits: 2, LastVisit: now.Add(-2 * 24 * time.Hour), OwnerCampaign: shop},
		{Name: "B", Email: "b@x.com", Spends: 500, Visits: 9, LastVisit: now.Add(-40 * 24 * time.Hour), OwnerCampaign: shop},
	}
}

func doJSON(t *testing.T, h http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSegmentRules_Endpoint(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/segment/rules", map[string]any{
		"shop": "shop-1",
		"rules": []map[string]any{
			{"field": "spends", "operator": ">", "value": 10000, "humanReadable": "high spender"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Mode      string             `json:"mode"`
		Count     int                `json:"count"`
		Customers []segment.Customer `json:"customers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ruleset", resp.Mode)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "A", resp.Customers[0].Name)
}

func TestSegmentRules_UnknownFieldRejected(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/segment/rules", map[string]any{
		"shop": "shop-1",
		"rules": []map[string]any{
			{"field": "shoeSize", "operator": ">", "value": 9},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSegmentToggles_ThenRules_MutualExclusion(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/segment/toggles", map[string]any{
		"shop":    "shop-1",
		"toggles": map[string]any{"minSpendEnabled": true, "minSpend": 10000},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/v1/segment/rules", map[string]any{
		"shop": "shop-1",
		"rules": []map[string]any{
			{"field": "visits", "operator": ">", "value": 5},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Mode      string             `json:"mode"`
		Customers []segment.Customer `json:"customers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ruleset", resp.Mode)
	require.Len(t, resp.Customers, 1)
	// B fails the earlier toggle filter; only the rule set may apply
	assert.Equal(t, "B", resp.Customers[0].Name)
}

func TestGenerateSegment_MalformedTranslationKeepsView(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	h := newTestHandler(repo, "here is json: {\"desc...MALFORMED")
	r := Router(h)

	// establish a view first
	w := doJSON(t, r, "POST", "/v1/segment/rules", map[string]any{
		"shop": "shop-1",
		"rules": []map[string]any{
			{"field": "spends", "operator": ">", "value": 10000},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/v1/segment/generate", map[string]any{
		"shop":   "shop-1",
		"prompt": "people who spend a lot",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Contains(t, errResp["raw"], "MALFORMED")

	// view unchanged from before the call
	w = doJSON(t, r, "GET", "/v1/segment/view?shop=shop-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Mode  string `json:"mode"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "ruleset", view.Mode)
	assert.Equal(t, 1, view.Count)
}

func TestGenerateSegment_AppliesRules(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	reply := "```json\n" + `{"description":"high spenders","rules":[{"field":"spends","operator":">","value":10000,"humanReadable":"high spender"}]}` + "\n```"
	r := Router(newTestHandler(repo, reply))

	w := doJSON(t, r, "POST", "/v1/segment/generate", map[string]any{
		"shop":   "shop-1",
		"prompt": "high spenders",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Description string          `json:"description"`
		Rules       segment.RuleSet `json:"rules"`
		Count       int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "high spenders", resp.Description)
	assert.Len(t, resp.Rules, 1)
	assert.Equal(t, 1, resp.Count)
}

func TestSendCampaign_WritesLog(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/campaign/send", map[string]any{
		"shop":    "shop-1",
		"subject": "Sale",
		"body":    "Everything must go",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sent   int `json:"sent"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 0, resp.Failed)
	assert.Len(t, repo.log["shop-1"], 2)
}

func TestSendCampaign_SelectedSubset(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/campaign/send", map[string]any{
		"shop":    "shop-1",
		"emails":  []string{"b@x.com"},
		"subject": "Hi B",
		"body":    "Just you",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.log["shop-1"], 1)
	assert.Equal(t, "b@x.com", repo.log["shop-1"][0].CustEmail)
}

func TestSuggestMessages_Endpoint(t *testing.T) {
	reply := "```json\n" + `{"objective":"promote summer sale","suggestions":[
		{"subject":"Summer starts now","body":"Up to 40% off.","tone":"casual","imageType":"beach scene"},
		{"subject":"Hot deals inside","body":"Shop the sale.","tone":"urgent"},
		{"subject":"Sunny savings","body":"New arrivals on sale.","tone":"friendly"}
	]}` + "\n```"
	r := Router(newTestHandler(newMockRepo(), reply))

	w := doJSON(t, r, "POST", "/v1/campaign/suggest", map[string]any{
		"objective": "promote summer sale",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp translate.Suggestions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "promote summer sale", resp.Objective)
	require.Len(t, resp.Suggestions, 3)
	assert.Equal(t, "Summer starts now", resp.Suggestions[0].Subject)
}

func TestSuggestMessages_UnparseableReply(t *testing.T) {
	r := Router(newTestHandler(newMockRepo(), "I'd be happy to brainstorm with you!"))

	w := doJSON(t, r, "POST", "/v1/campaign/suggest", map[string]any{
		"objective": "promote summer sale",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Contains(t, errResp["raw"], "brainstorm")
}

func TestSuggestMessages_MissingObjective(t *testing.T) {
	r := Router(newTestHandler(newMockRepo(), ""))
	w := doJSON(t, r, "POST", "/v1/campaign/suggest", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignInsights(t *testing.T) {
	repo := newMockRepo()
	seedCustomers(repo, "shop-1")
	repo.log["shop-1"] = []segment.MessageRecord{
		{CustEmail: "a@x.com", Status: segment.StatusSent},
		{CustEmail: "b@x.com", Status: segment.StatusSent},
		{CustEmail: "b@x.com", Status: segment.StatusFailed},
	}
	r := Router(newTestHandler(repo, "Your campaign reached most customers."))

	w := doJSON(t, r, "GET", "/v1/campaign/insights?shop=shop-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats        segment.Stats `json:"stats"`
		DeliveryRate string        `json:"deliveryRate"`
		Narrative    string        `json:"narrative"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Stats.SentCount)
	assert.Equal(t, 1, resp.Stats.FailedCount)
	assert.Equal(t, "66.7%", resp.DeliveryRate)
	assert.NotEmpty(t, resp.Narrative)
}

func TestShops_CRUD(t *testing.T) {
	repo := newMockRepo()
	r := Router(newTestHandler(repo, ""))

	w := doJSON(t, r, "POST", "/v1/shops", map[string]any{
		"email": "owner@x.com",
		"name":  "Spring Sale",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, "GET", "/v1/shops?email=owner@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var shops []storage.Shop
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shops))
	require.Len(t, shops, 1)

	w = doJSON(t, r, "DELETE", "/v1/shops/"+shops[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "DELETE", "/v1/shops/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateShop_Validation(t *testing.T) {
	r := Router(newTestHandler(newMockRepo(), ""))
	w := doJSON(t, r, "POST", "/v1/shops", map[string]any{"name": "No Email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
