package bot

import (
	"context"
	"encoding/base64"
	"errors"
	"io"

	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/common"
	"github.com/jqlim/expense-bot/internal/session"
)

// handlePhoto downloads a receipt photo, runs the vision extractor, and
// opens the confirm flow on success. A failed download is user-visible
// since it blocks the whole receipt path.
func (r *Router) handlePhoto(ctx context.Context, m *telebot.Message) {
	if m.Photo == nil {
		return
	}
	_ = r.transport.Notify(m.Chat, telebot.Typing)

	encoded, err := r.downloadPhoto(m.Photo)
	if err != nil {
		r.logger.Error("photo download failed", "chat_id", m.Chat.ID, "error", err)
		r.send(m.Chat, msgPhotoDownloadFailed)
		return
	}

	cand, err := r.parser.ExtractReceipt(ctx, encoded)
	if err != nil {
		r.logger.Info("receipt extraction failed", "chat_id", m.Chat.ID, "error", err)
		if errors.Is(err, common.ErrRateLimit) {
			r.send(m.Chat, msgPhotoRateLimited)
		} else {
			r.send(m.Chat, msgPhotoFailed)
		}
		return
	}

	key := r.key(m.Chat.ID, m.Sender.ID)
	s := &session.Session{Type: session.TypeReceipt, Candidate: cand}
	r.sessions.Set(key, s)
	r.presentCandidate(m.Chat, s)
}

// downloadPhoto fetches the photo bytes and base64-encodes them for the
// vision API.
func (r *Router) downloadPhoto(photo *telebot.Photo) (string, error) {
	rc, err := r.transport.File(&photo.File)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			r.logger.Debug("failed to close photo stream", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
