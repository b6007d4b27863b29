package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tmardones/campusred/internal/auth"
	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/database"
	"github.com/tmardones/campusred/internal/store"
	"github.com/tmardones/campusred/internal/websocket"
)

type testEnv struct {
	db      *sql.DB
	catalog *catalog.Catalog
	hub     *websocket.Hub
	engine  *Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := websocket.NewHub(logger)
	engine := NewSessions(cat, hub, store.NewLedgerStore(db), logger)
	return &testEnv{db: db, catalog: cat, hub: hub, engine: engine}
}

func (e *testEnv) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authedRequest builds a request carrying an authenticated context, the way
// the auth middleware would.
func authedRequest(method, target string, body any, token, userID, name string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{
		UserID:       userID,
		Email:        userID + "@uc.cl",
		Name:         name,
		SessionToken: token,
	})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestPlaceListSortedByRating(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	req := authedRequest("GET", "/api/places", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var view struct {
		Results []struct {
			ID     string  `json:"id"`
			Rating float64 `json:"rating"`
		} `json:"results"`
		Sort string `json:"sort"`
	}
	decodeBody(t, rec, &view)

	if len(view.Results) != 5 {
		t.Fatalf("results = %d, want 5", len(view.Results))
	}
	for i := 1; i < len(view.Results); i++ {
		if view.Results[i].Rating > view.Results[i-1].Rating {
			t.Errorf("results not in rating order at %d", i)
		}
	}
	if view.Sort != "rating-desc" {
		t.Errorf("sort = %q, want rating-desc", view.Sort)
	}
}

func TestPlaceListTextFilter(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	req := authedRequest("GET", "/api/places?q=biblioteca", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var view struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	decodeBody(t, rec, &view)
	if len(view.Results) != 1 || view.Results[0].ID != "place-biblioteca" {
		t.Errorf("results = %+v, want only place-biblioteca", view.Results)
	}
}

func TestPlaceDetailUnknown(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	req := authedRequest("GET", "/api/places/nope", nil, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Detail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAddReviewCreditsPoints(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	body := map[string]any{"text": "Buena luz, poca gente", "stars": 5}
	req := authedRequest("POST", "/api/places/place-central/reviews", body, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "place-central")
	rec := httptest.NewRecorder()
	h.AddReview(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Balance int `json:"balance"`
		Earned  int `json:"earned"`
	}
	decodeBody(t, rec, &resp)
	if resp.Earned != 50 {
		t.Errorf("earned = %d, want 50", resp.Earned)
	}
	if resp.Balance != 900 {
		t.Errorf("balance = %d, want 900", resp.Balance)
	}
}

func TestAddReviewRejectsBadStars(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	for _, stars := range []int{0, 6} {
		req := authedRequest("POST", "/api/places/place-central/reviews", map[string]any{"stars": stars}, "tok", "user-1", "Tomás")
		req.SetPathValue("id", "place-central")
		rec := httptest.NewRecorder()
		h.AddReview(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("stars %d: status = %d, want 400", stars, rec.Code)
		}
	}
}

func TestAddAlertCreditsAndSurfacesInDetail(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	body := map[string]any{"text": "Sin cupos hasta las 18:00", "category": "full"}
	req := authedRequest("POST", "/api/places/place-biblioteca/alerts", body, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "place-biblioteca")
	rec := httptest.NewRecorder()
	h.AddAlert(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Earned int `json:"earned"`
	}
	decodeBody(t, rec, &resp)
	if resp.Earned != 30 {
		t.Errorf("earned = %d, want 30", resp.Earned)
	}

	dreq := authedRequest("GET", "/api/places/place-biblioteca", nil, "tok", "user-1", "Tomás")
	dreq.SetPathValue("id", "place-biblioteca")
	drec := httptest.NewRecorder()
	h.Detail(drec, dreq)

	var detail struct {
		Alerts []struct {
			Category string `json:"category"`
		} `json:"alerts"`
	}
	decodeBody(t, drec, &detail)
	if len(detail.Alerts) != 1 || detail.Alerts[0].Category != "full" {
		t.Errorf("alerts = %+v, want one full alert", detail.Alerts)
	}
}

func TestAddAlertUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	h := NewPlaceHandler(env.catalog, env.engine, env.hub, env.logger())

	req := authedRequest("POST", "/api/places/place-central/alerts", map[string]any{"category": "flooded"}, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "place-central")
	rec := httptest.NewRecorder()
	h.AddAlert(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRedeemLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewRewardsHandler(env.catalog, env.engine, env.logger())

	// The default balance covers prize-cafe (200) but not prize-entrada-cine (1200).
	req := authedRequest("POST", "/api/rewards/redeem", map[string]string{"prize_id": "prize-entrada-cine"}, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Redeem(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var conflict struct {
		Shortfall int `json:"shortfall"`
	}
	decodeBody(t, rec, &conflict)
	if conflict.Shortfall != 350 {
		t.Errorf("shortfall = %d, want 350", conflict.Shortfall)
	}

	req = authedRequest("POST", "/api/rewards/redeem", map[string]string{"prize_id": "prize-cafe"}, "tok", "user-1", "Tomás")
	rec = httptest.NewRecorder()
	h.Redeem(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Balance int `json:"balance"`
		Coupon  struct {
			Prize struct {
				ID string `json:"id"`
			} `json:"prize"`
		} `json:"coupon"`
	}
	decodeBody(t, rec, &resp)
	if resp.Balance != 650 {
		t.Errorf("balance = %d, want 650", resp.Balance)
	}
	if resp.Coupon.Prize.ID != "prize-cafe" {
		t.Errorf("coupon prize = %q, want prize-cafe", resp.Coupon.Prize.ID)
	}

	creq := authedRequest("GET", "/api/rewards/coupons", nil, "tok", "user-1", "Tomás")
	crec := httptest.NewRecorder()
	h.Coupons(crec, creq)
	var coupons []json.RawMessage
	decodeBody(t, crec, &coupons)
	if len(coupons) != 1 {
		t.Errorf("coupons = %d, want 1", len(coupons))
	}
}

func TestRedeemUnknownPrize(t *testing.T) {
	env := newTestEnv(t)
	h := NewRewardsHandler(env.catalog, env.engine, env.logger())

	req := authedRequest("POST", "/api/rewards/redeem", map[string]string{"prize_id": "prize-nope"}, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Redeem(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPrizesReportAffordability(t *testing.T) {
	env := newTestEnv(t)
	h := NewRewardsHandler(env.catalog, env.engine, env.logger())

	req := authedRequest("GET", "/api/rewards/prizes", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Prizes(rec, req)

	var prizes []struct {
		ID         string `json:"id"`
		Cost       int    `json:"cost"`
		Affordable bool   `json:"affordable"`
	}
	decodeBody(t, rec, &prizes)
	if len(prizes) == 0 {
		t.Fatal("no prizes returned")
	}
	for _, p := range prizes {
		if want := p.Cost <= 850; p.Affordable != want {
			t.Errorf("%s: affordable = %v, want %v", p.ID, p.Affordable, want)
		}
	}
}

func TestRankingUsesLiveBalance(t *testing.T) {
	env := newTestEnv(t)
	h := NewRewardsHandler(env.catalog, env.engine, env.logger())

	req := authedRequest("GET", "/api/rewards/ranking", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Ranking(rec, req)

	var entries []struct {
		UserID string `json:"user_id"`
		Points int    `json:"points"`
	}
	decodeBody(t, rec, &entries)

	found := false
	for i, e := range entries {
		if e.UserID == "user-1" {
			found = true
			if e.Points != 850 {
				t.Errorf("points = %d, want 850", e.Points)
			}
		}
		if i > 0 && e.Points > entries[i-1].Points {
			t.Errorf("ranking not sorted at %d", i)
		}
	}
	if !found {
		t.Error("active user missing from ranking")
	}
}

func TestEventSubscriptionToggle(t *testing.T) {
	env := newTestEnv(t)
	h := NewEventHandler(env.catalog, store.NewSubscriptionStore(env.db), env.logger())

	req := authedRequest("POST", "/api/events/event-hackathon/subscribe", nil, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "event-hackathon")
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)

	var resp struct {
		Subscribed bool `json:"subscribed"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Subscribed {
		t.Error("first toggle should subscribe")
	}

	lreq := authedRequest("GET", "/api/events", nil, "tok", "user-1", "Tomás")
	lrec := httptest.NewRecorder()
	h.List(lrec, lreq)
	var events []struct {
		ID         string `json:"id"`
		Subscribed bool   `json:"subscribed"`
	}
	decodeBody(t, lrec, &events)
	for _, e := range events {
		if want := e.ID == "event-hackathon"; e.Subscribed != want {
			t.Errorf("%s: subscribed = %v, want %v", e.ID, e.Subscribed, want)
		}
	}

	req = authedRequest("POST", "/api/events/event-hackathon/subscribe", nil, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "event-hackathon")
	rec = httptest.NewRecorder()
	h.Subscribe(rec, req)
	decodeBody(t, rec, &resp)
	if resp.Subscribed {
		t.Error("second toggle should unsubscribe")
	}
}

func TestEventSubscribeUnknown(t *testing.T) {
	env := newTestEnv(t)
	h := NewEventHandler(env.catalog, store.NewSubscriptionStore(env.db), env.logger())

	req := authedRequest("POST", "/api/events/nope/subscribe", nil, "tok", "user-1", "Tomás")
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMapScreenFlow(t *testing.T) {
	env := newTestEnv(t)
	h := NewMapHandler(env.catalog, env.engine, env.logger())

	req := authedRequest("GET", "/api/map/state", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.State(rec, req)

	var view struct {
		State struct {
			Layer string `json:"layer"`
			Tab   string `json:"tab"`
		} `json:"state"`
	}
	decodeBody(t, rec, &view)
	if view.State.Layer != "standard" || view.State.Tab != "places" {
		t.Errorf("initial state = %+v, want standard/places", view.State)
	}

	req = authedRequest("POST", "/api/map/layer/toggle", nil, "tok", "user-1", "Tomás")
	rec = httptest.NewRecorder()
	h.ToggleLayer(rec, req)
	decodeBody(t, rec, &view)
	if view.State.Layer != "eco" {
		t.Errorf("layer after toggle = %q, want eco", view.State.Layer)
	}

	// Selection on the eco layer resolves an eco point.
	req = authedRequest("POST", "/api/map/select", map[string]string{"id": "eco-agua-biblioteca"}, "tok", "user-1", "Tomás")
	rec = httptest.NewRecorder()
	h.Select(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	// The other session token gets an independent screen.
	req = authedRequest("GET", "/api/map/state", nil, "tok2", "user-1", "Tomás")
	rec = httptest.NewRecorder()
	h.State(rec, req)
	decodeBody(t, rec, &view)
	if view.State.Layer != "standard" {
		t.Errorf("second session layer = %q, want standard", view.State.Layer)
	}
}

func TestMapPositionDelivery(t *testing.T) {
	env := newTestEnv(t)
	h := NewMapHandler(env.catalog, env.engine, env.logger())

	// A fix with no pending resolution is dropped.
	req := authedRequest("POST", "/api/map/position", map[string]float64{"lat": -33.4985, "lng": -70.6138}, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Position(rec, req)

	var resp struct {
		Accepted bool `json:"accepted"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Accepted {
		t.Error("first delivery should be buffered")
	}

	rec = httptest.NewRecorder()
	h.Position(rec, authedRequest("POST", "/api/map/position", map[string]float64{"lat": -33.5, "lng": -70.6}, "tok", "user-1", "Tomás"))
	decodeBody(t, rec, &resp)
	if resp.Accepted {
		t.Error("second delivery should be dropped while one is buffered")
	}
}

func TestMapNearby(t *testing.T) {
	env := newTestEnv(t)
	h := NewMapHandler(env.catalog, env.engine, env.logger())

	// Query from the central courtyard; only the courtyard itself, the
	// recycling point and the gamma study room sit within 100m.
	req := authedRequest("GET", "/api/map/nearby?lat=-33.4989&lng=-70.6125&radius=100", nil, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.Nearby(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var items []struct {
		ID        string  `json:"id"`
		Kind      string  `json:"kind"`
		Name      string  `json:"name"`
		DistanceM float64 `json:"distance_m"`
	}
	decodeBody(t, rec, &items)

	if len(items) != 3 {
		t.Fatalf("items = %d, want 3\nbody: %s", len(items), rec.Body.String())
	}
	if items[0].ID != "place-central" || items[0].DistanceM != 0 {
		t.Errorf("nearest = %s at %.1fm, want place-central at 0m", items[0].ID, items[0].DistanceM)
	}
	for i := 1; i < len(items); i++ {
		if items[i].DistanceM < items[i-1].DistanceM {
			t.Errorf("items not nearest-first at %d", i)
		}
	}
	for _, it := range items {
		wantKind := "place"
		if strings.HasPrefix(it.ID, "eco-") {
			wantKind = "eco"
		}
		if it.Kind != wantKind {
			t.Errorf("%s: kind = %q, want %q", it.ID, it.Kind, wantKind)
		}
		if it.Name == "" {
			t.Errorf("%s: name not resolved", it.ID)
		}
	}
}

func TestMapNearbyValidation(t *testing.T) {
	env := newTestEnv(t)
	h := NewMapHandler(env.catalog, env.engine, env.logger())

	for _, target := range []string{
		"/api/map/nearby",
		"/api/map/nearby?lat=-33.5",
		"/api/map/nearby?lat=-33.5&lng=-70.6&radius=0",
		"/api/map/nearby?lat=-33.5&lng=-70.6&radius=abc",
	} {
		rec := httptest.NewRecorder()
		h.Nearby(rec, authedRequest("GET", target, nil, "tok", "user-1", "Tomás"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestMapSortValidation(t *testing.T) {
	env := newTestEnv(t)
	h := NewMapHandler(env.catalog, env.engine, env.logger())

	req := authedRequest("POST", "/api/map/sort", map[string]string{"sort": "alphabetical"}, "tok", "user-1", "Tomás")
	rec := httptest.NewRecorder()
	h.SetSort(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
