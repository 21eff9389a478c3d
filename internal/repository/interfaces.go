// Package repository はお気に入りレコードの永続化を提供する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/recipebook/internal/model"
)

var (
	// ErrDuplicateFavorite は同じmealIdのレコードが既に存在する場合に返る。
	// ストアのユニーク制約違反をこのエラーに変換する。
	ErrDuplicateFavorite = errors.New("favorite already exists")

	// ErrFavoriteNotFound は削除対象のmealIdが存在しない場合に返る。
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// FavoriteRepository はお気に入りレコードの永続化インターフェース。
// mealIdの一意性はストアのユニーク制約で保証し、事前の存在確認は行わない。
type FavoriteRepository interface {
	// List は全レコードを作成日時の昇順で返す。0件の場合は空スライスを返す。
	List(ctx context.Context) ([]*model.Favorite, error)

	// Create はレコードを挿入する。成功時はfav.IDにストアの識別子が設定される。
	// mealIdが重複する場合はErrDuplicateFavoriteを返し、何も変更しない。
	Create(ctx context.Context, fav *model.Favorite) error

	// FindByMealID はmealIdでレコードを検索する。見つからない場合はnilを返す。
	FindByMealID(ctx context.Context, mealID string) (*model.Favorite, error)

	// DeleteByMealID はmealIdに一致するレコードを削除する。
	// 削除件数が0の場合はErrFavoriteNotFoundを返す。
	DeleteByMealID(ctx context.Context, mealID string) error

	// Ping はストアへの到達性を確認する。
	Ping(ctx context.Context) error
}

// SQLConnector は共有のPostgreSQL接続を返す。*database.Handle[*sql.DB] がこれを満たす。
type SQLConnector interface {
	Acquire(ctx context.Context) (*sql.DB, error)
}

// MongoConnector は共有のMongoDBデータベースを返す。*database.Handle[*mongo.Database] がこれを満たす。
type MongoConnector interface {
	Acquire(ctx context.Context) (*mongo.Database, error)
}
