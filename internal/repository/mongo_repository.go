package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// MongoStore implements CartStore on a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
	}
}

func (m *MongoStore) Get(ctx context.Context, cartKey string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"_id": cartKey}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *MongoStore) UpsertLine(ctx context.Context, cartKey string, line domain.CartLine) error {
	now := time.Now()
	if line.AddedAt.IsZero() {
		line.AddedAt = now
	}

	filter := bson.M{"_id": cartKey}

	var existing domain.Cart
	err := m.collection.FindOne(ctx, filter).Decode(&existing)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			cart := &domain.Cart{
				CartKey:   cartKey,
				Lines:     []domain.CartLine{line},
				CreatedAt: now,
				UpdatedAt: now,
			}
			cart.Recalculate()
			cart.Hash = cartHash(cart.Lines)

			_, err = m.collection.InsertOne(ctx, cart)
			if err != nil {
				return fmt.Errorf("failed to create cart with line: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing cart: %w", err)
	}

	if existing.LineByKey(line.Key) != nil {
		update := bson.M{
			"$set": bson.M{
				"lines.$[elem]": line,
				"updated_at":    now,
			},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.key": line.Key},
			},
		})

		_, err = m.collection.UpdateOne(ctx, filter, update, arrayFilters)
		if err != nil {
			return fmt.Errorf("failed to update existing line: %w", err)
		}
	} else {
		update := bson.M{
			"$push": bson.M{"lines": line},
			"$set":  bson.M{"updated_at": now},
		}

		_, err = m.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to add new line: %w", err)
		}
	}

	return m.refreshTotals(ctx, cartKey)
}

func (m *MongoStore) SetLineQuantity(ctx context.Context, cartKey, lineKey string, quantity float64) error {
	filter := bson.M{"_id": cartKey}

	if quantity <= 0 {
		update := bson.M{
			"$pull": bson.M{
				"lines": bson.M{"key": lineKey},
			},
			"$set": bson.M{"updated_at": time.Now()},
		}

		result, err := m.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to remove line: %w", err)
		}
		if result.MatchedCount == 0 {
			return ErrCartNotFound
		}

		return m.refreshTotals(ctx, cartKey)
	}

	filter = bson.M{
		"_id":       cartKey,
		"lines.key": lineKey,
	}
	update := bson.M{
		"$set": bson.M{
			"lines.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.key": lineKey},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to set line quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}

	return m.refreshTotals(ctx, cartKey)
}

func (m *MongoStore) Save(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()

	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Recalculate()
	cart.Hash = cartHash(cart.Lines)

	filter := bson.M{"_id": cart.CartKey}
	update := bson.M{"$set": cart}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

// refreshTotals reloads the document and writes back only the derived
// fields, leaving the line collection as the targeted updates left it.
func (m *MongoStore) refreshTotals(ctx context.Context, cartKey string) error {
	cart, err := m.Get(ctx, cartKey)
	if err != nil {
		return err
	}

	cart.Recalculate()

	update := bson.M{
		"$set": bson.M{
			"totals":     cart.Totals,
			"hash":       cartHash(cart.Lines),
			"updated_at": time.Now(),
		},
	}

	_, err = m.collection.UpdateOne(ctx, bson.M{"_id": cartKey}, update)
	if err != nil {
		return fmt.Errorf("failed to refresh totals: %w", err)
	}

	return nil
}

// cartHash fingerprints the line collection so clients can detect changes
// between reads.
func cartHash(lines []domain.CartLine) string {
	if len(lines) == 0 {
		return ""
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
