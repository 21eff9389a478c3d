// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Messageはクライアントがトースト表示に使うため、APIの契約として英語の固定文言とする。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, favorite, recipe, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAlreadyFavorited  = "ALREADY_FAVORITED"
	ErrCodeFavoriteNotFound  = "FAVORITE_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeMealNotFound      = "MEAL_NOT_FOUND"
	ErrCodeRouteNotFound     = "NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// レスポンスの message フィールドに入る固定文言。
const (
	MessageFavoriteAdded      = "Meal added to favorites"
	MessageFavoriteRemoved    = "Meal removed from favorites"
	MessageAlreadyFavorited   = "Meal already in favorites"
	MessageFavoriteNotFound   = "Meal not found in favorites"
	MessageMethodNotAllowed   = "Method Not Allowed"
	MessageMealNotFound       = "Meal not found."
	MessageFetchFavoritesFail = "Error fetching favorites"
	MessageAddFavoriteFail    = "Error adding favorite meal"
	MessageRemoveFavoriteFail = "Error removing favorite meal"
)

// NewAlreadyFavoritedError は登録済みのmealIdを再度お気に入りにしようとした場合のエラーを生成する。
func NewAlreadyFavoritedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFavorited,
		Message:  MessageAlreadyFavorited,
		Category: "favorite",
		Action:   "This meal is already in your favorites list.",
	}
}

// NewFavoriteNotFoundError はお気に入りに存在しないmealIdを削除しようとした場合のエラーを生成する。
func NewFavoriteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  MessageFavoriteNotFound,
		Category: "favorite",
		Action:   "Reload the favorites list and try again.",
	}
}

// NewInvalidRequestError はリクエストボディの不備を表すエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Send a JSON body with mealId, mealName and imageUrl.",
	}
}

// NewMethodNotAllowedError はサポート外のHTTPメソッドに対するエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  MessageMethodNotAllowed,
		Category: "validation",
		Action:   "Use GET, POST or DELETE.",
	}
}

// NewMealNotFoundError はレシピAPIに該当する料理が存在しない場合のエラーを生成する。
func NewMealNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeMealNotFound,
		Message:  MessageMealNotFound,
		Category: "recipe",
		Action:   "Go back to the meal list and pick another meal.",
	}
}

// NewRouteNotFoundError は存在しないパスへのアクセスに対するエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  "Not Found",
		Category: "validation",
		Action:   "Check the request path.",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 原因はログにのみ記録し、messageには操作ごとの汎用文言だけを入れる。
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  message,
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// NewRateLimitExceededError はレート制限超過時のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}
