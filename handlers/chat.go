package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/database"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// GetConversations rebuilds every (patient, counterpart doctor) view from
// the message stream: last message plus unread count. Nothing is persisted
// for this shape.
func GetConversations(c *gin.Context) {
	userID := c.GetString("userId")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "senderId", Value: userID}},
			bson.D{{Key: "receiverId", Value: userID}},
		}}}}},
		{{Key: "$addFields", Value: bson.D{{Key: "partner", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$senderId", userID}}},
			"$receiverId",
			"$senderId",
		}}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "patientId", Value: "$patientId"}, {Key: "partner", Value: "$partner"}}},
			{Key: "lastMessage", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
			{Key: "unreadCount", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$receiverId", userID}}},
					bson.D{{Key: "$eq", Value: bson.A{"$isRead", false}}},
				}}},
				1,
				0,
			}}}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "doctors"},
			{Key: "localField", Value: "_id.partner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "partnerProfiles"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}

	cursor, err := database.Messages.Aggregate(ctx, pipeline)
	if err != nil {
		logging.L().Error().Err(err).Msg("conversations aggregate failed")
		fail(c, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			PatientID string `bson:"patientId"`
			Partner   string `bson:"partner"`
		} `bson:"_id"`
		LastMessage     models.Message    `bson:"lastMessage"`
		UnreadCount     int64             `bson:"unreadCount"`
		PartnerProfiles []models.UserInfo `bson:"partnerProfiles"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		logging.L().Error().Err(err).Msg("conversations decode failed")
		fail(c, http.StatusInternalServerError, "Failed to decode conversations")
		return
	}

	conversations := make([]models.Conversation, 0, len(rows))
	for _, r := range rows {
		doctor := models.UserInfo{ID: r.ID.Partner, FirstName: "Unknown"}
		if len(r.PartnerProfiles) > 0 {
			doctor = r.PartnerProfiles[0]
			doctor.ID = r.ID.Partner
		}
		last := r.LastMessage
		conversations = append(conversations, models.Conversation{
			PatientID:   r.ID.PatientID,
			Doctor:      doctor,
			LastMessage: &last,
			UnreadCount: r.UnreadCount,
		})
	}

	c.JSON(http.StatusOK, conversations)
}

// GetMessages returns one page of history for a (counterpart, patient)
// conversation, newest first. The cursor is the id of the oldest message in
// the previous page; pages are disjoint and hasMore goes false on the last
// one.
func GetMessages(c *gin.Context) {
	userID := c.GetString("userId")
	doctorID := c.Query("doctorId")
	patientID := c.Query("patientId")
	if doctorID == "" || patientID == "" {
		fail(c, http.StatusBadRequest, "doctorId and patientId are required")
		return
	}

	limit := defaultPageLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}

	filter := bson.M{
		"patientId": patientID,
		"$or": bson.A{
			bson.M{"senderId": userID, "receiverId": doctorID},
			bson.M{"senderId": doctorID, "receiverId": userID},
		},
	}
	if cursorID := c.Query("cursor"); cursorID != "" {
		// Message ids are ObjectID hex: fixed length, so the lexicographic
		// order mongo applies to strings matches generation order.
		if _, err := primitive.ObjectIDFromHex(cursorID); err != nil {
			fail(c, http.StatusBadRequest, "invalid cursor")
			return
		}
		filter["_id"] = bson.M{"$lt": cursorID}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := optionsFindNewestFirst(int64(limit) + 1)
	cursor, err := database.Messages.Find(ctx, filter, opts)
	if err != nil {
		logging.L().Error().Err(err).Msg("messages find failed")
		fail(c, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		logging.L().Error().Err(err).Msg("messages decode failed")
		fail(c, http.StatusInternalServerError, "Failed to decode messages")
		return
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	nextCursor := ""
	if hasMore && len(messages) > 0 {
		nextCursor = messages[len(messages)-1].ID
	}
	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"hasMore":    hasMore,
		"nextCursor": nextCursor,
	})
}

// SearchDoctors finds counterpart doctors by name prefix, excluding the
// caller.
func SearchDoctors(c *gin.Context) {
	userID := c.GetString("userId")
	term := c.Query("term")
	if term == "" {
		fail(c, http.StatusBadRequest, "term is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"_id": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"firstName": bson.M{"$regex": "^" + term, "$options": "i"}},
			bson.M{"lastName": bson.M{"$regex": "^" + term, "$options": "i"}},
		},
	}

	cursor, err := database.Doctors.Find(ctx, filter, optionsFindLimited(20))
	if err != nil {
		logging.L().Error().Err(err).Msg("doctor search failed")
		fail(c, http.StatusInternalServerError, "Failed to search doctors")
		return
	}
	defer cursor.Close(ctx)

	doctors := []models.UserInfo{}
	if err := cursor.All(ctx, &doctors); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to decode doctors")
		return
	}

	c.JSON(http.StatusOK, doctors)
}

// SearchPatients finds patients by name prefix.
func SearchPatients(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		fail(c, http.StatusBadRequest, "term is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"firstName": bson.M{"$regex": "^" + term, "$options": "i"}},
		bson.M{"lastName": bson.M{"$regex": "^" + term, "$options": "i"}},
	}}

	cursor, err := database.Patients.Find(ctx, filter, optionsFindLimited(20))
	if err != nil {
		logging.L().Error().Err(err).Msg("patient search failed")
		fail(c, http.StatusInternalServerError, "Failed to search patients")
		return
	}
	defer cursor.Close(ctx)

	patients := []models.Patient{}
	if err := cursor.All(ctx, &patients); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to decode patients")
		return
	}

	c.JSON(http.StatusOK, patients)
}
