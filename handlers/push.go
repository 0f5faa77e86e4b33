package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/database"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

func init() {
	// Generate throwaway VAPID keys when none are configured so development
	// setups work out of the box. Production must set the environment
	// variables.
	if os.Getenv("VAPID_PUBLIC_KEY") == "" || os.Getenv("VAPID_PRIVATE_KEY") == "" {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			logging.L().Warn().Err(err).Msg("failed to generate VAPID keys")
			return
		}

		os.Setenv("VAPID_PUBLIC_KEY", publicKey)
		os.Setenv("VAPID_PRIVATE_KEY", privateKey)
		logging.L().Warn().Msg("generated ephemeral VAPID keys; set VAPID_PUBLIC_KEY/VAPID_PRIVATE_KEY in production")
	}

	vapidPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
}

func GetVapidPublicKey(c *gin.Context) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if publicKey == "" {
		fail(c, http.StatusServiceUnavailable, "VAPID public key not configured")
		return
	}

	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

// SubscribePush stores one web push endpoint per doctor. Upserted so a
// browser renewing its subscription replaces the old one.
func SubscribePush(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	userID := c.GetString("userId")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pushSub := models.PushSubscription{
		ID:     primitive.NewObjectID().Hex(),
		UserID: userID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}

	_, err := database.Subscriptions.UpdateOne(
		ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"userId": pushSub.UserID, "sub": pushSub.Sub}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logging.L().Error().Err(err).Str("doctorId", userID).Msg("failed to save push subscription")
		fail(c, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved", "userId": userID})
}

// SendPushNotification delivers a web push to one doctor, best effort.
// Expired subscriptions (410) are pruned.
func SendPushNotification(userID, title, body string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.L().Error().Interface("panic", r).Msg("panic in push notification")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var sub models.PushSubscription
		err := database.Subscriptions.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
		if err == mongo.ErrNoDocuments {
			return
		}
		if err != nil {
			logging.L().Warn().Err(err).Str("doctorId", userID).Msg("failed to load push subscription")
			return
		}

		payload, err := json.Marshal(map[string]any{
			"title": title,
			"body":  body,
			"data": map[string]any{
				"url":       "/chat",
				"timestamp": time.Now().Unix(),
			},
		})
		if err != nil {
			return
		}

		expired, err := deliverPush(payload, &sub.Sub)
		if err != nil {
			logging.L().Warn().Err(err).Str("doctorId", userID).Msg("failed to send push notification")
		}
		if expired {
			// The lookup context may have expired while the push endpoint was
			// slow; the prune gets its own deadline.
			pruneCtx, cancelPrune := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPrune()
			if _, delErr := database.Subscriptions.DeleteOne(pruneCtx, bson.M{"userId": userID}); delErr != nil {
				logging.L().Warn().Err(delErr).Msg("failed to delete expired subscription")
			}
		}
	}()
}

// deliverPush sends one web push and reports whether the subscription is
// gone (HTTP 410) and should be pruned.
func deliverPush(payload []byte, sub *webpush.Subscription) (expired bool, err error) {
	resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
		Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
		VAPIDPrivateKey: vapidPrivateKey,
		TTL:             30,
	})
	if resp != nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusGone {
			return true, err
		}
	}
	return false, err
}

// SendMessagePush notifies an offline receiver about a new chat message.
func SendMessagePush(receiverID, senderName, content string) {
	if senderName == "" {
		senderName = "A colleague"
	}

	SendPushNotification(receiverID, senderName+" sent a message", truncateBody(content, 100))
}

// truncateBody shortens a preview on a rune boundary so the payload stays
// valid UTF-8.
func truncateBody(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
