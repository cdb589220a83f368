package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout: sync chat can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Chat API Smoke Test\n")

	email := fmt.Sprintf("smoke+%d@example.com", time.Now().Unix())

	// 1. Register
	color.Yellow("\n[1] Register")
	resp, body, err := sendRequest("POST", "/auth/v1/register", "", map[string]interface{}{
		"email":     email,
		"password":  "smoketest123",
		"full_name": "Smoke Tester",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 2. Login
	color.Yellow("\n[2] Login")
	resp, body, err = sendRequest("POST", "/auth/v1/login", "", map[string]interface{}{
		"email":    email,
		"password": "smoketest123",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var loginResp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	json.Unmarshal(body, &loginResp)
	token := loginResp.Data.AccessToken
	if token == "" {
		color.Red("No access token in login response")
		os.Exit(1)
	}

	// 3. Async message (ack + temp_message_id)
	color.Yellow("\n[3] Queue async message")
	resp, body, err = sendRequest("POST", "/chat/v1/message", token, map[string]interface{}{
		"message": "Hi! What can you help me with?",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var ackResp map[string]interface{}
	json.Unmarshal(body, &ackResp)
	prettyPrint(ackResp)

	// 4. Sync message (full response inline)
	color.Yellow("\n[4] Send sync message")
	resp, body, err = sendRequest("POST", "/chat/v1/message/sync", token, map[string]interface{}{
		"message": "Reply with exactly one word: pong",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var syncResp map[string]interface{}
	json.Unmarshal(body, &syncResp)
	prettyPrint(syncResp)

	// 5. List conversations
	color.Yellow("\n[5] List conversations")
	resp, body, err = sendRequest("GET", "/chat/v1/conversations", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var listResp map[string]interface{}
	json.Unmarshal(body, &listResp)
	prettyPrint(listResp)

	// 6. Oversized message must be rejected
	color.Yellow("\n[6] Oversized message (expect 422)")
	big := make([]byte, 5001)
	for i := range big {
		big[i] = 'a'
	}
	resp, _, err = sendRequest("POST", "/chat/v1/message", token, map[string]interface{}{
		"message": string(big),
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		color.Green("Status: %s (rejected as expected)", resp.Status)
	} else {
		color.Red("Status: %s (expected 422)", resp.Status)
	}

	color.Cyan("\n✅ Smoke test finished")
}
