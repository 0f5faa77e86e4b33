package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// vapidPrivateKey is populated at startup from the environment (see push.go).
var vapidPrivateKey string

// fail writes the error shape clients parse: a JSON body with a "message"
// field.
func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

func optionsFindNewestFirst(limit int64) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(limit)
}

func optionsFindLimited(limit int64) *options.FindOptions {
	return options.Find().SetLimit(limit)
}
