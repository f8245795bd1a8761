package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/howlong/internal/app"
	"github.com/ayusman/howlong/internal/capture"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/metrics"
	"github.com/ayusman/howlong/internal/server"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/store"
	"github.com/ayusman/howlong/testdata"
)

func TestE2E_VisitorSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	poses, err := testdata.Sequence(
		testdata.Step{Pose: "neutral", Count: 3},
		testdata.Step{Pose: "neck_touch", Count: 1},
	)
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	det := detector.NewMockDetector()
	det.SetSequence(poses)

	sessCfg := session.DefaultConfig()
	sessCfg.Engagement.WaitingStep = 99

	m := metrics.New()
	hub := server.NewStateHub(20 * time.Millisecond)
	defer hub.Close()

	kiosk := app.New(app.Config{
		Camera:    capture.Config{Width: 320, Height: 180, FPS: 30},
		Presence:  capture.PresenceConfig{Threshold: 1, IdleAfter: time.Minute, IdleFPS: 10},
		Session:   sessCfg,
		RenderFPS: 30,
		ShotsDir:  filepath.Join(tmpDir, "shots"),
		Store:     s,
		Metrics:   m,
		Publisher: hub,
	},
		app.WithCamera(capture.NewMockCamera(320, 180, []int{30, 220}, true)),
		app.WithDetector(det),
	)

	srv := server.New(server.Config{
		Store:     s,
		Frames:    kiosk,
		States:    hub,
		Control:   kiosk,
		Metrics:   m.Handler(),
		SharePage: "report.html",
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	if err := kiosk.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer kiosk.Stop()

	t.Run("StateStream", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/state"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("never saw the neck pose: %v", err)
			}
			var state struct {
				PoseState string `json:"poseState"`
			}
			if err := json.Unmarshal(msg, &state); err != nil {
				t.Fatalf("bad state message: %v", err)
			}
			if state.PoseState == "neck" {
				return
			}
		}
	})

	var report struct {
		ID         string `json:"id"`
		Reason     string `json:"reason"`
		ActionType string `json:"action_type"`
		WaitingPct int    `json:"waiting_pct"`
		ShareURL   string `json:"share_url"`
	}

	t.Run("ReportAfterNavigation", func(t *testing.T) {
		deadline := time.Now().Add(10 * time.Second)
		for {
			resp, err := client.Get(ts.URL + "/api/reports/latest")
			if err != nil {
				t.Fatalf("GET latest error = %v", err)
			}
			if resp.StatusCode == http.StatusOK {
				json.NewDecoder(resp.Body).Decode(&report)
				resp.Body.Close()
				break
			}
			resp.Body.Close()
			if time.Now().After(deadline) {
				t.Fatal("no report after the waiting index filled up")
			}
			time.Sleep(100 * time.Millisecond)
		}

		if report.Reason != "pct==99" || report.ActionType != "neck" || report.WaitingPct != 99 {
			t.Errorf("report = %+v", report)
		}
		if !strings.HasPrefix(report.ShareURL, "report.html?src=qr&level=0&engagementLabel=01+None+Engagement&") {
			t.Errorf("share url = %s", report.ShareURL)
		}
	})

	t.Run("CompositeShot", func(t *testing.T) {
		if report.ID == "" {
			t.Skip("no report")
		}
		resp, err := client.Get(ts.URL + "/api/reports/" + report.ID + "/shot")
		if err != nil {
			t.Fatalf("GET shot error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Error("shot is not a JPEG")
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET metrics error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, want := range []string{
			`howlong_bursts_completed_total{gesture="neck"} 1`,
			`howlong_navigations_total{reason="pct==99"} 1`,
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %s", want)
			}
		}
	})

	t.Run("PauseAndRestart", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/pause", "application/json", nil)
		if err != nil {
			t.Fatalf("POST pause error = %v", err)
		}
		resp.Body.Close()
		if !kiosk.Paused() {
			t.Error("kiosk not paused")
		}

		before := kiosk.SessionID()
		resp, err = client.Post(ts.URL+"/api/session/restart", "application/json", nil)
		if err != nil {
			t.Fatalf("POST restart error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("restart status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
		if kiosk.SessionID() == before {
			t.Error("restart kept the old session")
		}

		sess, err := s.Sessions().GetByID(before)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if sess.EndedAt == nil {
			t.Error("finished session not ended in the store")
		}
	})
}
