package delivery

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"glitchstore/internal/models"
)

// MongoCatalog implements Catalog on the shared mongo database with two batch
// reads, products first and then their distinct categories.
type MongoCatalog struct {
	db *mongo.Database
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{db: db}
}

func (c *MongoCatalog) ActiveProductsWithCategories(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]CatalogEntry, error) {
	cursor, err := c.db.Collection("products").Find(ctx, bson.M{
		"_id":      bson.M{"$in": ids},
		"isActive": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, len(ids))
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	categoryIDs := make([]primitive.ObjectID, 0, len(products))
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range products {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			categoryIDs = append(categoryIDs, p.CategoryID)
		}
	}

	categories := make(map[primitive.ObjectID]models.Category, len(categoryIDs))
	if len(categoryIDs) > 0 {
		catCursor, err := c.db.Collection("categories").Find(ctx, bson.M{"_id": bson.M{"$in": categoryIDs}})
		if err != nil {
			return nil, err
		}
		defer catCursor.Close(ctx)

		var cats []models.Category
		if err := catCursor.All(ctx, &cats); err != nil {
			return nil, err
		}
		for _, cat := range cats {
			categories[cat.ID] = cat
		}
	}

	entries := make(map[primitive.ObjectID]CatalogEntry, len(products))
	for _, p := range products {
		entries[p.ID] = CatalogEntry{Product: p, Category: categories[p.CategoryID]}
	}
	return entries, nil
}
