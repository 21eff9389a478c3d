package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/recipebook/internal/model"
)

// uniqueViolation はPostgreSQLのユニーク制約違反のSQLSTATE。
const uniqueViolation = "23505"

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	conn SQLConnector
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(conn SQLConnector) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{conn: conn}
}

// List は全レコードを作成日時の昇順で返す。
func (r *PostgresFavoriteRepo) List(ctx context.Context) ([]*model.Favorite, error) {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, meal_id, meal_name, image_url, created_at
		 FROM favorite_recipes ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	favs := make([]*model.Favorite, 0)
	for rows.Next() {
		fav := &model.Favorite{}
		if err := rows.Scan(&fav.ID, &fav.MealID, &fav.MealName, &fav.ImageURL, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		favs = append(favs, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return favs, nil
}

// Create はレコードを挿入する。meal_idが重複する場合はErrDuplicateFavoriteを返す。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	id := fav.ID
	if id == "" {
		id = uuid.NewString()
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO favorite_recipes (id, meal_id, meal_name, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (meal_id) DO NOTHING`,
		id, fav.MealID, fav.MealName, fav.ImageURL, fav.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateFavorite
		}
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("お気に入り作成件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrDuplicateFavorite
	}

	fav.ID = id
	return nil
}

// FindByMealID はmeal_idでレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) FindByMealID(ctx context.Context, mealID string) (*model.Favorite, error) {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	fav := &model.Favorite{}
	err = db.QueryRowContext(ctx,
		`SELECT id, meal_id, meal_name, image_url, created_at
		 FROM favorite_recipes WHERE meal_id = $1`,
		mealID,
	).Scan(&fav.ID, &fav.MealID, &fav.MealName, &fav.ImageURL, &fav.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}
	return fav, nil
}

// DeleteByMealID はmeal_idに一致するレコードを削除する。
func (r *PostgresFavoriteRepo) DeleteByMealID(ctx context.Context, mealID string) error {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM favorite_recipes WHERE meal_id = $1`, mealID)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("お気に入り削除件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// Ping はデータベースへの到達性を確認する。
func (r *PostgresFavoriteRepo) Ping(ctx context.Context) error {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("データベースへのPingに失敗しました: %w", err)
	}
	return nil
}
