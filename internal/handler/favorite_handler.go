package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
)

// maxFavoriteBodyBytes はお気に入りAPIが受け付けるリクエストボディの上限。
const maxFavoriteBodyBytes = 16 << 10

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// ListFavorites は全てのお気に入りを返す。
	ListFavorites(ctx context.Context) ([]favoriteResponse, error)
	// AddFavorite はお気に入りを追加する。
	AddFavorite(ctx context.Context, req addFavoriteRequest) error
	// RemoveFavorite はmealIdに一致するお気に入りを削除する。
	RemoveFavorite(ctx context.Context, mealID string) error
}

// FavoriteHandler はお気に入り管理のHTTPハンドラー。
// /api/favorites の1エンドポイントをHTTPメソッドで振り分ける。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{
		service: service,
	}
}

// favoriteResponse はお気に入りのAPIレスポンス。
type favoriteResponse struct {
	ID       string `json:"id"`
	MealID   string `json:"mealId"`
	MealName string `json:"mealName"`
	ImageURL string `json:"imageUrl"`
}

// addFavoriteRequest はお気に入り追加リクエストのボディ。
type addFavoriteRequest struct {
	MealID   string `json:"mealId"`
	MealName string `json:"mealName"`
	ImageURL string `json:"imageUrl"`
}

// removeFavoriteRequest はお気に入り削除リクエストのボディ。
type removeFavoriteRequest struct {
	MealID string `json:"mealId"`
}

// ServeHTTP はHTTPメソッドに応じて一覧・追加・削除を振り分ける。
func (h *FavoriteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListFavorites(w, r)
	case http.MethodPost:
		h.AddFavorite(w, r)
	case http.MethodDelete:
		h.RemoveFavorite(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		MethodNotAllowed(w, r)
	}
}

// ListFavorites は全てのお気に入りを返す。
// GET /api/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.service.ListFavorites(r.Context())
	if err != nil {
		handleServiceError(w, r, err, model.MessageFetchFavoritesFail)
		return
	}
	if favs == nil {
		favs = []favoriteResponse{}
	}

	writeJSON(w, http.StatusOK, favs)
}

// AddFavorite はお気に入りを追加する。
// POST /api/favorites
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be a JSON object"))
		return
	}

	if err := h.service.AddFavorite(r.Context(), req); err != nil {
		handleServiceError(w, r, err, model.MessageAddFavoriteFail)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: model.MessageFavoriteAdded})
}

// RemoveFavorite はお気に入りを削除する。
// DELETE /api/favorites
// mealIdはJSONボディから取得し、ボディが空の場合はクエリパラメータを使う。
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req removeFavoriteRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be a JSON object"))
		return
	}

	mealID := strings.TrimSpace(req.MealID)
	if mealID == "" {
		mealID = strings.TrimSpace(r.URL.Query().Get("mealId"))
	}

	if err := h.service.RemoveFavorite(r.Context(), mealID); err != nil {
		handleServiceError(w, r, err, model.MessageRemoveFavoriteFail)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: model.MessageFavoriteRemoved})
}

// decodeJSONBody はリクエストボディを1つのJSON値としてデコードする。
// ボディが空の場合はio.EOFを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFavoriteBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	// 2つ目のJSON値が続く場合は不正なボディとして扱う
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
