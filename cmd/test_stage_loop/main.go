package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Scripted conversation against a running server. Each turn states the stage
// the widget should report afterwards.
type turn struct {
	Utterance     string
	ExpectedStage string
	Description   string
}

var script = []turn{
	{"hello", "greeting", "bare greeting stays in greeting"},
	{"I've had a headache since yesterday", "gathering", "first symptom moves to gathering"},
	{"it gets worse in the evening", "followup", "turn count passes the followup threshold"},
	{"it is mostly behind my eyes", "followup", "still following up"},
	{"what should I do?", "conclusion", "direct request jumps to conclusion"},
	{"ok", "conclusion", "terse reply keeps the summary going"},
	{"thank you", "farewell", "thanks closes the conversation"},
	{"start over", "greeting", "restart clears the session"},
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000/api", "chat API base URL")
	flag.Parse()

	color.Cyan("🚀 Stage loop against %s\n", *baseURL)

	client := &http.Client{Timeout: 60 * time.Second}
	sessionID := ""
	failures := 0

	for i, t := range script {
		color.Yellow("\n[%d] %s", i+1, t.Description)
		fmt.Printf("  user: %s\n", t.Utterance)

		res, status, err := send(client, *baseURL, sessionID, t.Utterance)
		if err != nil {
			color.Red("  request failed: %v", err)
			os.Exit(1)
		}
		if status != http.StatusOK {
			color.Red("  status %d: %s", status, res.Message)
			os.Exit(1)
		}
		sessionID = res.SessionID

		fmt.Printf("  bot:  %s\n", truncate(res.Response, 120))
		if res.Stage == t.ExpectedStage {
			color.Green("  stage %s ✓", res.Stage)
		} else {
			failures++
			color.Red("  stage %s, expected %s", res.Stage, t.ExpectedStage)
		}
	}

	fmt.Println()
	if failures > 0 {
		color.Red("%d of %d turns landed in the wrong stage", failures, len(script))
		os.Exit(1)
	}
	color.Green("All %d turns landed in the expected stage", len(script))
}

func send(client *http.Client, baseURL, sessionID, utterance string) (*chatResponse, int, error) {
	body, _ := json.Marshal(map[string]string{"utterance": utterance, "session_id": sessionID})
	resp, err := client.Post(baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var res chatResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %q: %w", truncate(string(raw), 80), err)
	}
	return &res, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
