package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/database"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
)

const uploadFolder = "doussiya/chat"

// UploadAttachments accepts a multipart form with one or more "files" parts,
// stores each binary in Cloudinary and persists an attachment document.
// Descriptors come back in input order; a message referencing them is sent
// separately, after this call resolves.
func UploadAttachments(c *gin.Context) {
	userID := c.GetString("userId")

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		fail(c, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	form := c.Request.MultipartForm
	files := form.File["files"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, "No files provided")
		return
	}

	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Cloudinary configuration error")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	attachments := make([]models.Attachment, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}

		publicID := userID + "_" + primitive.NewObjectID().Hex()
		result, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
			Folder:   uploadFolder,
			PublicID: publicID,
		})
		file.Close()
		if err != nil {
			logging.L().Error().Err(err).Str("fileName", header.Filename).Msg("cloudinary upload failed")
			fail(c, http.StatusInternalServerError, "Failed to upload file")
			return
		}

		att := models.Attachment{
			ID:        primitive.NewObjectID().Hex(),
			FileName:  header.Filename,
			FilePath:  uploadFolder + "/" + publicID,
			MimeType:  header.Header.Get("Content-Type"),
			Size:      header.Size,
			URL:       result.SecureURL,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := database.Attachments.InsertOne(ctx, att); err != nil {
			logging.L().Error().Err(err).Str("fileName", att.FileName).Msg("attachment insert failed")
			fail(c, http.StatusInternalServerError, "Failed to save attachment")
			return
		}

		attachments = append(attachments, att)
	}

	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}
