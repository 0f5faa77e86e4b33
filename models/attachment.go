package models

// Attachment is created by the upload endpoint before the message that
// references it is sent. Never mutated after creation.
type Attachment struct {
	ID        string `bson:"_id,omitempty" json:"id,omitempty"`
	FileName  string `bson:"fileName" json:"fileName"`
	FilePath  string `bson:"filePath" json:"filePath"`
	MimeType  string `bson:"mimeType" json:"mimeType"`
	Size      int64  `bson:"size" json:"size"`
	URL       string `bson:"url,omitempty" json:"url,omitempty"`
	CreatedAt int64  `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}
