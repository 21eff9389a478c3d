package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/recipebook/internal/model"
)

// --- モック定義 ---

// mockFavoriteService はFavoriteServiceInterfaceのモック実装。
type mockFavoriteService struct {
	listFavoritesFn  func(ctx context.Context) ([]favoriteResponse, error)
	addFavoriteFn    func(ctx context.Context, req addFavoriteRequest) error
	removeFavoriteFn func(ctx context.Context, mealID string) error
}

func (m *mockFavoriteService) ListFavorites(ctx context.Context) ([]favoriteResponse, error) {
	if m.listFavoritesFn != nil {
		return m.listFavoritesFn(ctx)
	}
	return nil, nil
}

func (m *mockFavoriteService) AddFavorite(ctx context.Context, req addFavoriteRequest) error {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, req)
	}
	return nil
}

func (m *mockFavoriteService) RemoveFavorite(ctx context.Context, mealID string) error {
	if m.removeFavoriteFn != nil {
		return m.removeFavoriteFn(ctx, mealID)
	}
	return nil
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) apiErrorBody {
	t.Helper()
	var body apiErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// apiErrorBody はテストでエラーレスポンスをデコードするための型。
type apiErrorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// --- GET /api/favorites テスト ---

func TestFavoriteHandler_List_Success(t *testing.T) {
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context) ([]favoriteResponse, error) {
			return []favoriteResponse{
				{ID: "fav-1", MealID: "52772", MealName: "Teriyaki Chicken Casserole", ImageURL: "https://example.com/a.jpg"},
			}, nil
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body []map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("len = %d, want 1", len(body))
	}
	want := map[string]string{
		"id":       "fav-1",
		"mealId":   "52772",
		"mealName": "Teriyaki Chicken Casserole",
		"imageUrl": "https://example.com/a.jpg",
	}
	for k, v := range want {
		if body[0][k] != v {
			t.Errorf("%s = %q, want %q", k, body[0][k], v)
		}
	}
}

func TestFavoriteHandler_List_EmptyIsArray(t *testing.T) {
	h := NewFavoriteHandler(&mockFavoriteService{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestFavoriteHandler_List_StoreError(t *testing.T) {
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context) ([]favoriteResponse, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Message != "Error fetching favorites" {
		t.Errorf("message = %q, want %q", body.Message, "Error fetching favorites")
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("response must not leak the underlying error")
	}
}

// --- POST /api/favorites テスト ---

func TestFavoriteHandler_Add_Success(t *testing.T) {
	var got addFavoriteRequest
	svc := &mockFavoriteService{
		addFavoriteFn: func(ctx context.Context, req addFavoriteRequest) error {
			got = req
			return nil
		},
	}
	h := NewFavoriteHandler(svc)

	body := `{"mealId":"52772","mealName":"Teriyaki Chicken Casserole","imageUrl":"https://example.com/a.jpg"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["message"] != "Meal added to favorites" {
		t.Errorf("message = %q, want %q", resp["message"], "Meal added to favorites")
	}
	if got.MealID != "52772" || got.MealName != "Teriyaki Chicken Casserole" || got.ImageURL != "https://example.com/a.jpg" {
		t.Errorf("unexpected request passed to service: %+v", got)
	}
}

func TestFavoriteHandler_Add_Duplicate(t *testing.T) {
	svc := &mockFavoriteService{
		addFavoriteFn: func(ctx context.Context, req addFavoriteRequest) error {
			return model.NewAlreadyFavoritedError()
		},
	}
	h := NewFavoriteHandler(svc)

	body := `{"mealId":"52772","mealName":"x","imageUrl":"https://example.com/a.jpg"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if msg := decodeErrorBody(t, w).Message; msg != "Meal already in favorites" {
		t.Errorf("message = %q, want %q", msg, "Meal already in favorites")
	}
}

func TestFavoriteHandler_Add_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "mealId=52772"},
		{"array", `[]`},
		{"wrong type", `{"mealId":52772}`},
		{"trailing data", `{"mealId":"1"}{"mealId":"2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFavoriteService{
				addFavoriteFn: func(ctx context.Context, req addFavoriteRequest) error {
					t.Fatal("service must not be called for a malformed body")
					return nil
				},
			}
			h := NewFavoriteHandler(svc)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if code := decodeErrorBody(t, w).Code; code != model.ErrCodeInvalidRequest {
				t.Errorf("code = %q, want %q", code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

func TestFavoriteHandler_Add_BodyTooLarge(t *testing.T) {
	h := NewFavoriteHandler(&mockFavoriteService{})

	big := `{"mealId":"1","mealName":"` + strings.Repeat("a", maxFavoriteBodyBytes) + `","imageUrl":"https://example.com"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(big)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFavoriteHandler_Add_StoreError(t *testing.T) {
	svc := &mockFavoriteService{
		addFavoriteFn: func(ctx context.Context, req addFavoriteRequest) error {
			return errors.New("server selection error")
		},
	}
	h := NewFavoriteHandler(svc)

	body := `{"mealId":"52772","mealName":"x","imageUrl":"https://example.com/a.jpg"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if msg := decodeErrorBody(t, w).Message; msg != "Error adding favorite meal" {
		t.Errorf("message = %q, want %q", msg, "Error adding favorite meal")
	}
}

// --- DELETE /api/favorites テスト ---

func TestFavoriteHandler_Remove_Success(t *testing.T) {
	var got string
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			got = mealID
			return nil
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites", strings.NewReader(`{"mealId":"52772"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != "52772" {
		t.Errorf("mealID = %q, want %q", got, "52772")
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["message"] != "Meal removed from favorites" {
		t.Errorf("message = %q, want %q", resp["message"], "Meal removed from favorites")
	}
}

func TestFavoriteHandler_Remove_QueryFallback(t *testing.T) {
	var got string
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			got = mealID
			return nil
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites?mealId=52771", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != "52771" {
		t.Errorf("mealID = %q, want %q", got, "52771")
	}
}

func TestFavoriteHandler_Remove_BodyTakesPrecedence(t *testing.T) {
	var got string
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			got = mealID
			return nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/favorites?mealId=query", bytes.NewBufferString(`{"mealId":"body"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "body" {
		t.Errorf("mealID = %q, want %q", got, "body")
	}
}

func TestFavoriteHandler_Remove_NotFound(t *testing.T) {
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			return model.NewFavoriteNotFoundError()
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites", strings.NewReader(`{"mealId":"99999"}`)))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if msg := decodeErrorBody(t, w).Message; msg != "Meal not found in favorites" {
		t.Errorf("message = %q, want %q", msg, "Meal not found in favorites")
	}
}

func TestFavoriteHandler_Remove_MalformedBody(t *testing.T) {
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			t.Fatal("service must not be called for a malformed body")
			return nil
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites", strings.NewReader(`{"mealId":`)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFavoriteHandler_Remove_StoreError(t *testing.T) {
	svc := &mockFavoriteService{
		removeFavoriteFn: func(ctx context.Context, mealID string) error {
			return errors.New("i/o timeout")
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites", strings.NewReader(`{"mealId":"52772"}`)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if msg := decodeErrorBody(t, w).Message; msg != "Error removing favorite meal" {
		t.Errorf("message = %q, want %q", msg, "Error removing favorite meal")
	}
}

// --- サポート外メソッド ---

func TestFavoriteHandler_UnsupportedMethod(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			h := NewFavoriteHandler(&mockFavoriteService{})

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(method, "/api/favorites", nil))

			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
			}
			if allow := w.Header().Get("Allow"); allow != "GET, POST, DELETE" {
				t.Errorf("Allow = %q, want %q", allow, "GET, POST, DELETE")
			}
		})
	}
}

func TestFavoriteHandler_UnsupportedMethod_Body(t *testing.T) {
	h := NewFavoriteHandler(&mockFavoriteService{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/favorites", nil))

	if msg := decodeErrorBody(t, w).Message; msg != "Method Not Allowed" {
		t.Errorf("message = %q, want %q", msg, "Method Not Allowed")
	}
}

// --- エラーマッピング ---

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewAlreadyFavoritedError(), http.StatusBadRequest},
		{model.NewInvalidRequestError("x"), http.StatusBadRequest},
		{model.NewFavoriteNotFoundError(), http.StatusNotFound},
		{model.NewMealNotFoundError(), http.StatusNotFound},
		{model.NewRouteNotFoundError(), http.StatusNotFound},
		{model.NewMethodNotAllowedError(), http.StatusMethodNotAllowed},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewInternalError("x"), http.StatusInternalServerError},
		{&model.APIError{Code: "UNKNOWN"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}
