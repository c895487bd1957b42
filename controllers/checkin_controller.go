package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/utils"
)

// multipart overhead allowed on top of the photo itself
const formSlackBytes = 1 << 20

// CheckInController exposes the daily check-in endpoints.
type CheckInController struct {
	svc      *services.CheckInService
	maxBytes int64
	log      *zap.Logger
}

func NewCheckInController(svc *services.CheckInService, maxBytes int64, log *zap.Logger) *CheckInController {
	return &CheckInController{svc: svc, maxBytes: maxBytes, log: orNop(log)}
}

// Create records today's check-in from a multipart photo upload.
// Retaking the photo on the same day replaces the proof.
func (c *CheckInController) Create(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if c.maxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes+formSlackBytes)
	}

	// Accept 'photo' or fallback to 'file'
	file, header, err := ctx.Request.FormFile("photo")
	if err != nil {
		file, header, err = ctx.Request.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(ctx, c.log, services.ErrPhotoTooLarge)
				return
			}
			utils.Error(ctx, http.StatusBadRequest, 40020, "no photo uploaded")
			return
		}
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		contentType = http.DetectContentType(head[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "unreadable photo")
			return
		}
	}

	res, err := c.svc.Record(ctx.Request.Context(), userID, services.Photo{
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	utils.Respond(ctx, status, 0, "success", res)
}

// Today reports whether the caller already checked in today.
func (c *CheckInController) Today(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	status, err := c.svc.CheckToday(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	utils.Success(ctx, status)
}
