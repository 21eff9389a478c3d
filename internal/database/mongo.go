package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoInitFunc は接続確立直後に1回だけ実行される初期化処理（インデックス作成など）。
// 失敗した場合は接続を破棄し、次のAcquireで接続からやり直す。
type MongoInitFunc func(ctx context.Context, db *mongo.Database) error

// DialMongo はMongoDBへ接続し、プライマリへのPingで到達性を確認する。
func DialMongo(uri, dbName string, init MongoInitFunc) DialFunc[*mongo.Database] {
	return func(ctx context.Context) (*mongo.Database, error) {
		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("failed to create mongo client: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}

		db := client.Database(dbName)
		if init != nil {
			if err := init(ctx, db); err != nil {
				_ = client.Disconnect(context.WithoutCancel(ctx))
				return nil, fmt.Errorf("failed to initialize mongo database: %w", err)
			}
		}
		return db, nil
	}
}

// NewMongoHandle はMongoDB用のHandleを生成する。
func NewMongoHandle(uri, dbName string, timeout time.Duration, init MongoInitFunc) *Handle[*mongo.Database] {
	return NewHandle(DialMongo(uri, dbName, init), func(ctx context.Context, db *mongo.Database) error {
		return db.Client().Disconnect(ctx)
	}, timeout)
}
