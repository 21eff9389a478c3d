// Package model はドメインモデルを定義する。
package model

import "time"

// Favorite はお気に入り登録された料理を表す。
// 作成後は不変で、変更操作は作成と削除のみ。
type Favorite struct {
	ID        string // ストアが採番する識別子（Mongo ObjectIDのhex またはUUID）
	MealID    string // レシピAPIの idMeal。ストア全体で一意
	MealName  string // お気に入り登録時点の料理名（プレーンテキスト）
	ImageURL  string // お気に入り登録時点のサムネイルURL
	CreatedAt time.Time
}

// NewFavorite は入力値から未保存のFavoriteを組み立てる。
// IDはストアごとに採番されるためここでは設定しない。
func NewFavorite(mealID, mealName, imageURL string, now time.Time) *Favorite {
	return &Favorite{
		MealID:    mealID,
		MealName:  mealName,
		ImageURL:  imageURL,
		CreatedAt: now,
	}
}
