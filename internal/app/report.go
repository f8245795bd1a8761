package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ayusman/howlong/internal/capture"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/store"
	"github.com/ayusman/howlong/internal/upload"
)

// finish persists the result of a visit once navigation fires: the report,
// the burst history and the composite shot. The shot is uploaded in the
// background and the report is updated with its URL on success.
// Callers hold sessMu.
func (a *App) finish(v *visit, out session.FrameOutput) {
	nav := out.Navigation
	sum := nav.Summary
	log.Printf("Session %s finished (%s): %s in %s, %d bursts",
		v.id, nav.Reason, sum.Label, sum.MMSS, sum.Total)

	rep := &store.Report{
		ID:          uuid.New().String(),
		SessionID:   v.id,
		Reason:      nav.Reason,
		Level:       sum.Level,
		Label:       sum.Label,
		MMSS:        sum.MMSS,
		ActionType:  sum.ActionType.String(),
		ActionCount: sum.ActionCount,
		WaitingPct:  sum.WaitingPct,
		TotalBursts: sum.Total,
		CreatedAt:   out.At,
	}

	shot, err := a.renderShot(out)
	if err != nil {
		log.Printf("Composite shot unavailable: %v", err)
	} else if path, err := a.saveShot(rep.ID, shot); err != nil {
		log.Printf("Failed to save shot: %v", err)
	} else {
		rep.ShotPath = path
	}

	if a.config.Store == nil {
		return
	}

	a.persistEvents(v)
	if err := a.config.Store.Reports().Create(rep); err != nil {
		log.Printf("Failed to store report: %v", err)
		return
	}
	if err := a.config.Store.Sessions().End(v.id, out.At); err != nil {
		log.Printf("Failed to end session %s: %v", v.id, err)
	}

	if shot != nil && a.config.Uploader.Enabled() {
		a.tasks.Add(1)
		go a.uploadShot(rep.ID, shot)
	}
}

// renderShot composites the latest camera frame and person mask with the
// final overlay.
func (a *App) renderShot(out session.FrameOutput) ([]byte, error) {
	frame, mask, ok := a.frames.clone()
	defer frame.Close()
	if !ok {
		return nil, capture.ErrEmptyFrame
	}

	canvas := a.config.Session.Burst
	shot, err := capture.Composite(&frame, mask, int(canvas.Width), int(canvas.Height), out)
	if err != nil {
		return nil, err
	}
	defer shot.Close()

	return capture.EncodeJPEG(shot, capture.JPEGQuality)
}

// saveShot writes the shot to the shots directory. The local copy is kept
// whether or not the upload succeeds.
func (a *App) saveShot(id string, data []byte) (string, error) {
	if a.config.ShotsDir == "" {
		return "", errors.New("no shots directory configured")
	}
	if err := os.MkdirAll(a.config.ShotsDir, 0755); err != nil {
		return "", fmt.Errorf("create shots dir: %w", err)
	}
	path := filepath.Join(a.config.ShotsDir, id+".jpg")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write shot: %w", err)
	}
	return path, nil
}

// uploadShot publishes the shot and records its URL. Failures leave the
// report pointing at the local file only.
func (a *App) uploadShot(reportID string, data []byte) {
	defer a.tasks.Done()

	url, err := a.config.Uploader.Upload(context.Background(), data)
	if err != nil {
		if !errors.Is(err, upload.ErrDisabled) {
			log.Printf("Shot upload failed for report %s: %v", reportID, err)
		}
		return
	}
	if err := a.config.Store.Reports().SetShotURL(reportID, url); err != nil {
		log.Printf("Failed to record shot URL for report %s: %v", reportID, err)
		return
	}
	log.Printf("Shot for report %s uploaded to %s", reportID, url)
}
