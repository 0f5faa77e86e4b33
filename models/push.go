package models

import "github.com/SherClockHolmes/webpush-go"

// PushSubscription stores one web push endpoint per user.
type PushSubscription struct {
	ID     string               `bson:"_id,omitempty" json:"id,omitempty"`
	UserID string               `bson:"userId" json:"userId"`
	Sub    webpush.Subscription `bson:"sub" json:"sub"`
}
