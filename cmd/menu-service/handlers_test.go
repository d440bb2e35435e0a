package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/canteen-ordering/internal/httpx"
	"github.com/MikeMC777/canteen-ordering/internal/menu"
)

//
// ===== in-memory menu.Repository =====
//

type stubRepo struct {
	items     map[string]*menu.Item
	cats      map[string]*menu.Category
	inUse     map[string]bool
	lastQuery menu.Query
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		items: make(map[string]*menu.Item),
		cats:  make(map[string]*menu.Category),
		inUse: make(map[string]bool),
	}
}

func (s *stubRepo) List(_ context.Context, q menu.Query) ([]menu.Item, error) {
	s.lastQuery = q
	out := make([]menu.Item, 0, len(s.items))
	for _, v := range s.items {
		if q.Q != "" && !containsFold(v.Name, q.Q) && !containsFold(v.Description, q.Q) {
			continue
		}
		if q.AvailableOnly && (!v.IsAvailable || v.StockQuantity == 0) {
			continue
		}
		if q.CategoryID != "" && (v.CategoryID == nil || *v.CategoryID != q.CategoryID) {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	start := q.Offset
	if start > len(out) {
		return []menu.Item{}, nil
	}
	end := start + q.Limit
	if end > len(out) || q.Limit <= 0 {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*menu.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *stubRepo) Create(_ context.Context, it *menu.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CategoryID != nil {
		if _, ok := s.cats[*it.CategoryID]; !ok {
			return menu.ErrCategoryNotFound
		}
	}
	it.CreatedAt = time.Now().UTC()
	it.UpdatedAt = it.CreatedAt
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *stubRepo) Update(_ context.Context, id string, req menu.UpdateItemRequest) (*menu.Item, error) {
	cur, ok := s.items[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	if req.Name != nil {
		cur.Name = *req.Name
	}
	if req.Description != nil {
		cur.Description = *req.Description
	}
	if req.Price != nil {
		cur.Price = *req.Price
	}
	if req.IsAvailable != nil {
		cur.IsAvailable = *req.IsAvailable
	}
	if req.PreparationTime != nil {
		cur.PreparationTime = *req.PreparationTime
	}
	if req.ImageURL != nil {
		cur.ImageURL = *req.ImageURL
	}
	cur.UpdatedAt = time.Now().UTC()
	cp := *cur
	return &cp, nil
}

func (s *stubRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	if s.inUse[id] {
		return false, menu.ErrInUse
	}
	delete(s.items, id)
	return true, nil
}

func (s *stubRepo) Categories(context.Context) ([]menu.Category, error) {
	out := make([]menu.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubRepo) CreateCategory(_ context.Context, c *menu.Category) error {
	for _, existing := range s.cats {
		if strings.EqualFold(existing.Name, c.Name) {
			return menu.ErrCategoryExists
		}
	}
	c.ID = uuid.NewString()
	c.IsActive = true
	cp := *c
	s.cats[c.ID] = &cp
	return nil
}

func containsFold(s, sub string) bool {
	return bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(sub)))
}

func (s *stubRepo) put(id, name string, stock int) {
	s.items[id] = &menu.Item{ID: id, Name: name, Price: "10.00", StockQuantity: stock, IsAvailable: stock > 0}
}

func newRouter(repo menu.Repository, adminHash string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, repo, adminHash)
	return r
}

func do(r http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

//
// ===== TESTS =====
//

func TestListItems_PaginationAndAvailableFilter(t *testing.T) {
	repo := newStubRepo()
	repo.put("1", "Burger", 5)
	repo.put("2", "Fries", 0)
	repo.put("3", "Soda", 9)
	r := newRouter(repo, "")

	w := do(r, http.MethodGet, "/api/menu?limit=2&offset=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got menu.ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Items) != 2 || got.Limit != 2 || got.Offset != 1 {
		t.Fatalf("unexpected page: %+v", got)
	}
	if repo.lastQuery.Q != "" {
		t.Fatalf("list must not search; Q=%q", repo.lastQuery.Q)
	}

	w = do(r, http.MethodGet, "/api/menu?available=true", "")
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Items) != 2 {
		t.Fatalf("available filter: got %d items, want 2", len(got.Items))
	}
}

func TestSearch_RequiresQ(t *testing.T) {
	repo := newStubRepo()
	repo.put("a", "Chicken Burger", 5)
	repo.put("b", "Cappuccino", 3)
	r := newRouter(repo, "")

	for _, target := range []string{"/api/menu/search", "/api/menu/search?q=b"} {
		if w := do(r, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", target, w.Code)
		}
	}

	w := do(r, http.MethodGet, "/api/menu/search?q=burg", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got menu.ListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Q != "burg" || len(got.Items) != 1 || got.Items[0].ID != "a" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestGetItem_OK_And_NotFound(t *testing.T) {
	repo := newStubRepo()
	repo.put("x", "Ramen", 2)
	r := newRouter(repo, "")

	if w := do(r, http.MethodGet, "/api/menu/x", ""); w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/api/menu/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateItem_ValidatesAndNormalizesPrice(t *testing.T) {
	repo := newStubRepo()
	r := newRouter(repo, "")

	w := do(r, http.MethodPost, "/api/menu", `{"name":"Hot Dog","price":"129.5","stock_quantity":3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var it menu.Item
	_ = json.Unmarshal(w.Body.Bytes(), &it)
	if it.Price != "129.50" || !it.IsAvailable || it.PreparationTime != 10 {
		t.Fatalf("unexpected item: %+v", it)
	}

	for _, body := range []string{
		`{"price":"1.00"}`,
		`{"name":"x","price":"abc"}`,
		`{"name":"x","price":"-1"}`,
		`{"name":"x","price":"1.00","stock_quantity":-2}`,
		`not json`,
	} {
		if w := do(r, http.MethodPost, "/api/menu", body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d body=%s", body, w.Code, w.Body.String())
		}
	}

	w = do(r, http.MethodPost, "/api/menu", `{"name":"x","price":"1.00","category_id":"missing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown category: want 404, got %d", w.Code)
	}
}

func TestUpdateItem_PartialLeavesOtherFields(t *testing.T) {
	repo := newStubRepo()
	repo.put("p", "Fries", 4)
	r := newRouter(repo, "")

	w := do(r, http.MethodPut, "/api/menu/p", `{"price":"12"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	cur := repo.items["p"]
	if cur.Price != "12.00" || cur.Name != "Fries" || cur.StockQuantity != 4 {
		t.Fatalf("unexpected item after update: %+v", cur)
	}

	if w := do(r, http.MethodPut, "/api/menu/p", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty update: want 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPut, "/api/menu/p", `{"name":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank name: want 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPut, "/api/menu/nope", `{"name":"x"}`); w.Code != http.StatusNotFound {
		t.Fatalf("missing item: want 404, got %d", w.Code)
	}
}

func TestDeleteItem(t *testing.T) {
	repo := newStubRepo()
	repo.put("d", "Cake", 1)
	repo.put("used", "Sushi", 1)
	repo.inUse["used"] = true
	r := newRouter(repo, "")

	if w := do(r, http.MethodDelete, "/api/menu/d", ""); w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/menu/d", ""); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/menu/used", ""); w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", w.Code)
	}
}

func TestCategories(t *testing.T) {
	repo := newStubRepo()
	r := newRouter(repo, "")

	if w := do(r, http.MethodPost, "/api/menu/categories", `{"name":"Snacks"}`); w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/menu/categories", `{"name":"snacks"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: want 409, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/menu/categories", `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank: want 400, got %d", w.Code)
	}

	w := do(r, http.MethodGet, "/api/menu/categories", "")
	var got struct {
		Items []menu.Category `json:"items"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Items) != 1 || got.Items[0].Name != "Snacks" {
		t.Fatalf("unexpected categories: %s", w.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	hash, err := httpx.HashToken("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	repo := newStubRepo()
	repo.put("x", "Tea", 2)
	r := newRouter(repo, hash)

	body := `{"name":"Tea","price":"1.00"}`
	if w := do(r, http.MethodPost, "/api/menu", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/menu", body, httpx.AdminTokenHeader, "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/menu", body, httpx.AdminTokenHeader, "s3cret"); w.Code != http.StatusCreated {
		t.Fatalf("good token: want 201, got %d body=%s", w.Code, w.Body.String())
	}
	// reads stay public
	if w := do(r, http.MethodGet, "/api/menu/x", ""); w.Code != http.StatusOK {
		t.Fatalf("public read: want 200, got %d", w.Code)
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}
