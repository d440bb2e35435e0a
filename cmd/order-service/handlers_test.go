package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/canteen-ordering/internal/events"
	ord "github.com/MikeMC777/canteen-ordering/internal/order"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

//
// ---------- STUBS & FAKES ----------
//

// stubRepo implements ord.Repository in memory. Stock goes through a
// stock.MemStore so reservations behave like the Postgres store.
type stubRepo struct {
	mu     sync.Mutex
	store  *stock.MemStore
	orders map[string]*ord.Order
	items  map[string][]ord.Item
}

func newStubRepo(store *stock.MemStore) *stubRepo {
	return &stubRepo{store: store, orders: make(map[string]*ord.Order), items: make(map[string][]ord.Item)}
}

func (s *stubRepo) Create(ctx context.Context, o *ord.Order, items []ord.Item) error {
	reqs := make([]stock.Request, 0, len(items))
	for _, it := range items {
		reqs = append(reqs, stock.Request{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	if _, err := s.store.Lock(ctx, o.ID, reqs, o.ExpiresAt); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	cp := *o
	s.orders[o.ID] = &cp
	s.items[o.ID] = append([]ord.Item(nil), items...)
	s.store.PutOrder(o.ID, o.ExpiresAt)
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*ord.Order, []ord.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil, ord.ErrNotFound
	}
	cp := *o
	return &cp, s.items[id], nil
}

func (s *stubRepo) GetItems(_ context.Context, orderID string) ([]ord.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return nil, ord.ErrNotFound
	}
	return s.items[orderID], nil
}

func (s *stubRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]ord.Order, error) {
	return s.list(func(o *ord.Order) bool { return o.UserID == userID }, limit, offset), nil
}

func (s *stubRepo) List(_ context.Context, q ord.ListQuery) ([]ord.Order, error) {
	return s.list(func(o *ord.Order) bool { return q.Status == "" || o.Status == q.Status }, q.Limit, q.Offset), nil
}

func (s *stubRepo) list(keep func(*ord.Order) bool, limit, offset int) []ord.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ord.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []ord.Order{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *stubRepo) Transition(ctx context.Context, id string, to ord.Status, reason string, now time.Time) (*ord.Order, []stock.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil, ord.ErrNotFound
	}
	if !ord.CanTransition(o.Status, to) {
		return nil, nil, &ord.TransitionError{From: o.Status, To: to}
	}
	var (
		locks []stock.Lock
		err   error
	)
	switch to {
	case ord.StatusConfirmed:
		locks, err = s.store.Confirm(ctx, id, now)
	case ord.StatusCancelled, ord.StatusExpired:
		locks, err = s.store.Release(ctx, id, now)
	}
	if err != nil {
		return nil, nil, err
	}
	o.Status = to
	if to == ord.StatusCancelled {
		o.CancelReason = reason
	}
	o.UpdatedAt = now
	cp := *o
	return &cp, locks, nil
}

func (s *stubRepo) Stats(_ context.Context, from, _ time.Time) (*ord.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &ord.Stats{Date: from.Format("2006-01-02"), Revenue: "0.00"}
	for _, o := range s.orders {
		st.Total++
		switch o.Status {
		case ord.StatusPending:
			st.Pending++
		case ord.StatusConfirmed:
			st.Confirmed++
		case ord.StatusCompleted:
			st.Completed++
		case ord.StatusCancelled:
			st.Cancelled++
		case ord.StatusExpired:
			st.Expired++
		}
	}
	return st, nil
}

// newMenuServer serves GET /api/menu/:id for the given items.
func newMenuServer(t *testing.T, items ...ord.MenuItemDTO) *httptest.Server {
	t.Helper()
	byID := make(map[string]ord.MenuItemDTO, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/menu/", func(w http.ResponseWriter, r *http.Request) {
		it, ok := byID[path.Base(r.URL.Path)]
		if !ok {
			http.Error(w, `{"error":"menu item not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(it)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	r     *gin.Engine
	svc   *ord.Service
	repo  *stubRepo
	store *stock.MemStore
	rec   *events.Recorder
	now   time.Time
}

var (
	pizzaID = uuid.NewString()
	ramenID = uuid.NewString()
	friesID = uuid.NewString()
)

func newEnv(t *testing.T) *env {
	t.Helper()
	store := stock.NewMemStore()
	store.PutItem(pizzaID, "Margherita Pizza", "Lunch", 5, true)
	store.PutItem(ramenID, "Ramen Bowl", "Dinner", 1, true)
	store.PutItem(friesID, "French Fries", "Snacks", 0, false)

	menuSrv := newMenuServer(t,
		ord.MenuItemDTO{ID: pizzaID, Name: "Margherita Pizza", Price: "2.99", IsAvailable: true},
		ord.MenuItemDTO{ID: ramenID, Name: "Ramen Bowl", Price: "3.50", IsAvailable: true},
		ord.MenuItemDTO{ID: friesID, Name: "French Fries", Price: "1.25", IsAvailable: false},
	)

	e := &env{store: store, rec: &events.Recorder{}, now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	e.repo = newStubRepo(store)
	e.svc = ord.NewService(e.repo, ord.NewExt(menuSrv.URL))
	e.svc.Now = func() time.Time { return e.now }
	e.svc.Events = e.rec

	gin.SetMode(gin.TestMode)
	e.r = gin.New()
	registerRoutes(e.r, e.svc)
	return e
}

func (e *env) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) available(t *testing.T, id string) int {
	t.Helper()
	lvl, err := e.store.Level(context.Background(), id)
	if err != nil {
		t.Fatalf("level %s: %v", id, err)
	}
	return lvl.Available
}

func (e *env) create(t *testing.T, userID string, lines string) ord.View {
	t.Helper()
	w := e.do(http.MethodPost, "/api/orders", fmt.Sprintf(`{"user_id":%q,"items":%s}`, userID, lines))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", w.Code, w.Body.String())
	}
	var v ord.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return v
}

//
// ---------- TESTS ----------
//

func TestCreateOrder_HappyPath(t *testing.T) {
	e := newEnv(t)

	lines := fmt.Sprintf(`[{"menu_item_id":%q,"quantity":2},{"menu_item_id":%q,"quantity":1},{"menu_item_id":%q,"quantity":1}]`,
		pizzaID, ramenID, pizzaID)
	v := e.create(t, "student-7", lines)

	if v.Status != ord.StatusPending || v.Total != "12.47" || len(v.Items) != 2 {
		t.Fatalf("unexpected order: %+v", v)
	}
	if v.SecondsRemaining != 900 || v.Expired {
		t.Fatalf("countdown=%d expired=%v, want 900/false", v.SecondsRemaining, v.Expired)
	}
	if !v.ExpiresAt.Equal(e.now.Add(15 * time.Minute)) {
		t.Fatalf("expires_at=%s", v.ExpiresAt)
	}
	if n := e.available(t, pizzaID); n != 2 {
		t.Fatalf("pizza available=%d, want 2", n)
	}
	if n := e.available(t, ramenID); n != 0 {
		t.Fatalf("ramen available=%d, want 0", n)
	}
	types := e.rec.Types()
	if len(types) != 2 || types[0] != events.OrderCreated || types[1] != events.StockLocked {
		t.Fatalf("events=%v", types)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	e := newEnv(t)

	body := fmt.Sprintf(`{"user_id":"u1","items":[{"menu_item_id":%q,"quantity":1},{"menu_item_id":%q,"quantity":2}]}`, pizzaID, ramenID)
	w := e.do(http.MethodPost, "/api/orders", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		MenuItemID string `json:"menu_item_id"`
		Available  int    `json:"available"`
		Requested  int    `json:"requested"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.MenuItemID != ramenID || got.Available != 1 || got.Requested != 2 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if n := e.available(t, pizzaID); n != 5 {
		t.Fatalf("pizza reserved on failed order: available=%d", n)
	}
	if len(e.repo.orders) != 0 {
		t.Fatalf("order stored on failure")
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	e := newEnv(t)
	cases := map[string]struct {
		body string
		want int
	}{
		"bad json":     {`{`, http.StatusBadRequest},
		"no user":      {fmt.Sprintf(`{"items":[{"menu_item_id":%q,"quantity":1}]}`, pizzaID), http.StatusBadRequest},
		"no items":     {`{"user_id":"u1","items":[]}`, http.StatusBadRequest},
		"zero qty":     {fmt.Sprintf(`{"user_id":"u1","items":[{"menu_item_id":%q,"quantity":0}]}`, pizzaID), http.StatusBadRequest},
		"unknown item": {`{"user_id":"u1","items":[{"menu_item_id":"nope","quantity":1}]}`, http.StatusNotFound},
		"unavailable":  {fmt.Sprintf(`{"user_id":"u1","items":[{"menu_item_id":%q,"quantity":1}]}`, friesID), http.StatusConflict},
	}
	for name, tc := range cases {
		if w := e.do(http.MethodPost, "/api/orders", tc.body); w.Code != tc.want {
			t.Fatalf("%s: want %d, got %d body=%s", name, tc.want, w.Code, w.Body.String())
		}
	}
	if n := e.available(t, pizzaID); n != 5 {
		t.Fatalf("pizza available=%d, want 5", n)
	}
}

func TestGetOrder_CountdownAndNotFound(t *testing.T) {
	e := newEnv(t)
	v := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))

	e.now = e.now.Add(10 * time.Minute)
	w := e.do(http.MethodGet, "/api/orders/"+v.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got ord.View
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.SecondsRemaining != 300 || len(got.Items) != 1 || got.Items[0].UnitPrice != "2.99" {
		t.Fatalf("unexpected view: %s", w.Body.String())
	}

	e.now = e.now.Add(10 * time.Minute)
	w = e.do(http.MethodGet, "/api/orders/"+v.ID, "")
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !got.Expired || got.SecondsRemaining != 0 {
		t.Fatalf("want expired view, got %s", w.Body.String())
	}

	if w := e.do(http.MethodGet, "/api/orders/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s (want 404)", w.Code, w.Body.String())
	}
}

func TestGetOrderItems(t *testing.T) {
	e := newEnv(t)
	v := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":3}]`, pizzaID))

	w := e.do(http.MethodGet, "/api/orders/"+v.ID+"/items", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var items []ord.Item
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 || items[0].TotalPrice != "8.97" {
		t.Fatalf("unexpected items: %s", w.Body.String())
	}
	if w := e.do(http.MethodGet, "/api/orders/"+uuid.NewString()+"/items", ""); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestListOrders_ByUserAndStatus(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, "alice", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))
	e.create(t, "bob", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))
	if w := e.do(http.MethodPost, "/api/orders/"+a.ID+"/cancel", ""); w.Code != http.StatusOK {
		t.Fatalf("cancel: status=%d body=%s", w.Code, w.Body.String())
	}

	var wrap struct {
		Items []ord.Order `json:"items"`
	}
	w := e.do(http.MethodGet, "/api/orders/user/alice?limit=10&offset=0", "")
	_ = json.Unmarshal(w.Body.Bytes(), &wrap)
	if w.Code != http.StatusOK || len(wrap.Items) != 1 || wrap.Items[0].ID != a.ID {
		t.Fatalf("user list: status=%d body=%s", w.Code, w.Body.String())
	}

	w = e.do(http.MethodGet, "/api/orders?status=pending", "")
	_ = json.Unmarshal(w.Body.Bytes(), &wrap)
	if len(wrap.Items) != 1 || wrap.Items[0].UserID != "bob" {
		t.Fatalf("status filter: body=%s", w.Body.String())
	}

	if w := e.do(http.MethodGet, "/api/orders?status=shipped", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter: want 400, got %d", w.Code)
	}
}

func TestUpdateStatus_ConfirmThenComplete(t *testing.T) {
	e := newEnv(t)
	v := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":2}]`, pizzaID))

	w := e.do(http.MethodPut, "/api/orders/"+v.ID+"/status", `{"status":"CONFIRMED"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if n := e.available(t, pizzaID); n != 3 {
		t.Fatalf("confirm changed stock: available=%d", n)
	}
	locks, _ := e.store.ActiveLocks(context.Background(), e.now)
	if len(locks) != 0 {
		t.Fatalf("confirmed order still holds %d active locks", len(locks))
	}

	if w := e.do(http.MethodPut, "/api/orders/"+v.ID+"/status", `{"status":"completed"}`); w.Code != http.StatusOK {
		t.Fatalf("complete: status=%d body=%s", w.Code, w.Body.String())
	}
	// completed is terminal
	if w := e.do(http.MethodPut, "/api/orders/"+v.ID+"/status", `{"status":"cancelled"}`); w.Code != http.StatusConflict {
		t.Fatalf("cancel completed: want 409, got %d", w.Code)
	}
	if n := e.available(t, pizzaID); n != 3 {
		t.Fatalf("available=%d, want 3", n)
	}
}

func TestUpdateStatus_Validation(t *testing.T) {
	e := newEnv(t)
	v := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))

	cases := map[string]struct {
		id, body string
		want     int
	}{
		"missing status": {v.ID, `{}`, http.StatusBadRequest},
		"unknown status": {v.ID, `{"status":"shipped"}`, http.StatusBadRequest},
		"skip confirm":   {v.ID, `{"status":"completed"}`, http.StatusConflict},
		"back to self":   {v.ID, `{"status":"pending"}`, http.StatusConflict},
		"unknown order":  {uuid.NewString(), `{"status":"confirmed"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		if w := e.do(http.MethodPut, "/api/orders/"+tc.id+"/status", tc.body); w.Code != tc.want {
			t.Fatalf("%s: want %d, got %d body=%s", name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestConfirmAfterHoldExpired(t *testing.T) {
	e := newEnv(t)
	v := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":4}]`, pizzaID))

	e.now = e.now.Add(16 * time.Minute)
	if w := e.do(http.MethodPut, "/api/orders/"+v.ID+"/status", `{"status":"confirmed"}`); w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d body=%s", w.Code, w.Body.String())
	}
	got, _, _ := e.repo.GetByID(context.Background(), v.ID)
	if got.Status != ord.StatusPending {
		t.Fatalf("status=%s, want pending", got.Status)
	}
	if n := e.available(t, pizzaID); n != 1 {
		t.Fatalf("available=%d, want 1 until the sweep runs", n)
	}
}

func TestCancel_RestocksPendingAndConfirmed(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":2}]`, pizzaID))
	b := e.create(t, "u2", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":3}]`, pizzaID))
	if n := e.available(t, pizzaID); n != 0 {
		t.Fatalf("available=%d, want 0", n)
	}

	w := e.do(http.MethodPost, "/api/orders/"+a.ID+"/cancel", `{"reason":"left early"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var o ord.Order
	_ = json.Unmarshal(w.Body.Bytes(), &o)
	if o.Status != ord.StatusCancelled || o.CancelReason != "left early" {
		t.Fatalf("unexpected order: %s", w.Body.String())
	}
	if n := e.available(t, pizzaID); n != 2 {
		t.Fatalf("available=%d, want 2", n)
	}

	e.do(http.MethodPut, "/api/orders/"+b.ID+"/status", `{"status":"confirmed"}`)
	w = e.do(http.MethodPost, "/api/orders/"+b.ID+"/cancel", "")
	_ = json.Unmarshal(w.Body.Bytes(), &o)
	if w.Code != http.StatusOK || o.CancelReason != "cancelled by user" {
		t.Fatalf("cancel confirmed: status=%d body=%s", w.Code, w.Body.String())
	}
	if n := e.available(t, pizzaID); n != 5 {
		t.Fatalf("available=%d, want 5", n)
	}

	// a second cancel must not restock twice
	if w := e.do(http.MethodPost, "/api/orders/"+a.ID+"/cancel", ""); w.Code != http.StatusConflict {
		t.Fatalf("double cancel: want 409, got %d", w.Code)
	}
	if n := e.available(t, pizzaID); n != 5 {
		t.Fatalf("available=%d after double cancel, want 5", n)
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, "u1", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))
	e.create(t, "u2", fmt.Sprintf(`[{"menu_item_id":%q,"quantity":1}]`, pizzaID))
	e.do(http.MethodPost, "/api/orders/"+a.ID+"/cancel", "")

	w := e.do(http.MethodGet, "/api/orders/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var st ord.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Date != "2026-05-04" || st.Total != 2 || st.Pending != 1 || st.Cancelled != 1 {
		t.Fatalf("unexpected stats: %s", w.Body.String())
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}
