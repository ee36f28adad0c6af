package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glitchstore/internal/models"
)

type createCategoryRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	BaseWeight    float64 `json:"baseWeight" binding:"min=0"`
	PackageWidth  float64 `json:"packageWidth" binding:"min=0"`
	PackageHeight float64 `json:"packageHeight" binding:"min=0"`
	PackageLength float64 `json:"packageLength" binding:"min=0"`
}

type updateCategoryRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	IsActive      *bool    `json:"isActive"`
	BaseWeight    *float64 `json:"baseWeight"`
	PackageWidth  *float64 `json:"packageWidth"`
	PackageHeight *float64 `json:"packageHeight"`
	PackageLength *float64 `json:"packageLength"`
}

func ListCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("categories").Find(ctx,
			bson.M{"isActive": true},
			options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		categories := make([]models.Category, 0)
		if err := cursor.All(ctx, &categories); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondData(c, http.StatusOK, "", categories)
	}
}

func CreateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/categories"
		defer handlePanic(c, route)

		var req createCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		name := strings.TrimSpace(req.Name)
		count, err := db.Collection("categories").CountDocuments(ctx, bson.M{"name": name})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if count > 0 {
			respondWithError(c, http.StatusConflict, route, "category already exists")
			return
		}

		category := models.Category{
			Name:          name,
			Description:   strings.TrimSpace(req.Description),
			IsActive:      true,
			BaseWeight:    req.BaseWeight,
			PackageWidth:  req.PackageWidth,
			PackageHeight: req.PackageHeight,
			PackageLength: req.PackageLength,
			CreatedAt:     time.Now(),
		}

		res, err := db.Collection("categories").InsertOne(ctx, category)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			category.ID = id
		}

		respondData(c, http.StatusCreated, "category created", category)
	}
}

func UpdateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/categories/:id"
		defer handlePanic(c, route)

		categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid category id")
			return
		}

		var req updateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		set := bson.M{}
		if req.Name != nil {
			set["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			set["isActive"] = *req.IsActive
		}
		if req.BaseWeight != nil {
			set["baseWeight"] = *req.BaseWeight
		}
		if req.PackageWidth != nil {
			set["packageWidth"] = *req.PackageWidth
		}
		if req.PackageHeight != nil {
			set["packageHeight"] = *req.PackageHeight
		}
		if req.PackageLength != nil {
			set["packageLength"] = *req.PackageLength
		}
		if len(set) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		var updated models.Category
		err = db.Collection("categories").FindOneAndUpdate(ctx,
			bson.M{"_id": categoryID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "category not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondData(c, http.StatusOK, "category updated", updated)
	}
}

// DeleteCategory deactivates a category; it must have no active products.
func DeleteCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/categories/:id"
		defer handlePanic(c, route)

		categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid category id")
			return
		}

		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		inUse, err := db.Collection("products").CountDocuments(ctx, bson.M{
			"categoryId": categoryID,
			"isActive":   true,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if inUse > 0 {
			respondWithError(c, http.StatusConflict, route, "category has active products")
			return
		}

		res, err := db.Collection("categories").UpdateOne(ctx,
			bson.M{"_id": categoryID},
			bson.M{"$set": bson.M{"isActive": false}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "category not found")
			return
		}

		respondData(c, http.StatusOK, "category deleted", nil)
	}
}
