package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Mann275/marketplace/internal/cart/application"
	"github.com/Mann275/marketplace/internal/cart/domain"
)

// Repository stores one cart document per customer.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("carts")}
}

func (r *Repository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, application.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// AddItem appends the product or, when it is already in the cart,
// overwrites its quantity.
func (r *Repository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	now := time.Now().UTC()
	filter := bson.M{"user_id": userID}

	var existing domain.Cart
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cart := domain.Cart{UserID: userID, Items: []domain.CartItem{item}, CreatedAt: now, UpdatedAt: now}
		if _, err := r.collection.InsertOne(ctx, cart); err != nil {
			return fmt.Errorf("create cart: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check cart: %w", err)
	}

	for _, line := range existing.Items {
		if line.ProductID == item.ProductID {
			update := bson.M{"$set": bson.M{
				"items.$[elem].quantity": item.Quantity,
				"items.$[elem].added_at": now,
				"updated_at":             now,
			}}
			opts := options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []interface{}{bson.M{"elem.product_id": item.ProductID}},
			})
			if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
			return nil
		}
	}

	update := bson.M{
		"$push": bson.M{"items": item},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	filter := bson.M{"user_id": userID, "items.product_id": productID}
	update := bson.M{"$set": bson.M{
		"items.$[elem].quantity": quantity,
		"updated_at":             time.Now().UTC(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.product_id": productID}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return application.ErrItemNotFound
	}
	return nil
}

func (r *Repository) RemoveItem(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return application.ErrCartNotFound
	}
	return nil
}

func (r *Repository) DeleteCart(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return application.ErrCartNotFound
	}
	return nil
}

// EnsureIndexes creates the unique user index and an abandonment TTL.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}
	return nil
}
