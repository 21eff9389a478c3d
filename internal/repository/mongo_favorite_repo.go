package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/hitoshi/recipebook/internal/model"
)

// FavoriteCollection はお気に入りレコードを保持するコレクション名。
const FavoriteCollection = "favoriterecipes"

// favoriteDocument はfavoriterecipesコレクションのドキュメント形式。
type favoriteDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	MealID    string        `bson:"mealId"`
	MealName  string        `bson:"mealName"`
	ImageURL  string        `bson:"imageUrl"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d *favoriteDocument) toModel() *model.Favorite {
	return &model.Favorite{
		ID:        d.ID.Hex(),
		MealID:    d.MealID,
		MealName:  d.MealName,
		ImageURL:  d.ImageURL,
		CreatedAt: d.CreatedAt,
	}
}

// EnsureFavoriteIndexes はmealIdのユニークインデックスを作成する。
// 既に同じ定義のインデックスがある場合は何もしない。
func EnsureFavoriteIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(FavoriteCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mealId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mealIdインデックスの作成に失敗しました: %w", err)
	}
	return nil
}

// MongoFavoriteRepo はMongoDBを使用したお気に入りリポジトリ。
type MongoFavoriteRepo struct {
	conn MongoConnector
}

// NewMongoFavoriteRepo はMongoFavoriteRepoを生成する。
func NewMongoFavoriteRepo(conn MongoConnector) *MongoFavoriteRepo {
	return &MongoFavoriteRepo{conn: conn}
}

func (r *MongoFavoriteRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(FavoriteCollection), nil
}

// List は全ドキュメントを作成日時の昇順で返す。
func (r *MongoFavoriteRepo) List(ctx context.Context) ([]*model.Favorite, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}

	var docs []favoriteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の読み取りに失敗しました: %w", err)
	}

	favs := make([]*model.Favorite, 0, len(docs))
	for i := range docs {
		favs = append(favs, docs[i].toModel())
	}
	return favs, nil
}

// Create はドキュメントを挿入する。mealIdが重複する場合はErrDuplicateFavoriteを返す。
func (r *MongoFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	doc := favoriteDocument{
		ID:        bson.NewObjectID(),
		MealID:    fav.MealID,
		MealName:  fav.MealName,
		ImageURL:  fav.ImageURL,
		CreatedAt: fav.CreatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateFavorite
		}
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}

	fav.ID = doc.ID.Hex()
	return nil
}

// FindByMealID はmealIdでドキュメントを検索する。見つからない場合はnilを返す。
func (r *MongoFavoriteRepo) FindByMealID(ctx context.Context, mealID string) (*model.Favorite, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc favoriteDocument
	err = coll.FindOne(ctx, bson.D{{Key: "mealId", Value: mealID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}
	return doc.toModel(), nil
}

// DeleteByMealID はmealIdに一致するドキュメントを削除する。
func (r *MongoFavoriteRepo) DeleteByMealID(ctx context.Context, mealID string) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.D{{Key: "mealId", Value: mealID}})
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// Ping はプライマリへの到達性を確認する。
func (r *MongoFavoriteRepo) Ping(ctx context.Context) error {
	db, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("MongoDBへのPingに失敗しました: %w", err)
	}
	return nil
}
