// Command result-log is a kiosk plugin that appends every finished session
// to a CSV file. Its manifest config names the file: {"path": "results.csv"}.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event   string          `json:"event"`
	Reason  string          `json:"reason"`
	Summary *Summary        `json:"summary"`
	Config  json.RawMessage `json:"config"`
}

// Summary mirrors the session result sent by the kiosk.
type Summary struct {
	Level       int    `json:"level"`
	Label       string `json:"engagementLabel"`
	MMSS        string `json:"mmss"`
	ActionType  string `json:"actionType"`
	ActionCount int    `json:"actionCount"`
	WaitingPct  int    `json:"waitingPct"`
	Total       int    `json:"totalBursts"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type config struct {
	Path string `json:"path"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	writeResponse(handle(req))
}

func handle(req Request) error {
	if req.Event != "session_finished" || req.Summary == nil {
		return fmt.Errorf("unsupported event %q", req.Event)
	}

	cfg := config{Path: "results.csv"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	s := req.Summary
	w := csv.NewWriter(f)
	w.Write([]string{
		time.Now().Format(time.RFC3339),
		req.Reason,
		strconv.Itoa(s.Level),
		s.Label,
		s.MMSS,
		s.ActionType,
		strconv.Itoa(s.ActionCount),
		strconv.Itoa(s.WaitingPct),
		strconv.Itoa(s.Total),
	})
	w.Flush()
	return w.Error()
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
