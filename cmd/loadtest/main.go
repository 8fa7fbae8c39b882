package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	baseURL   = flag.String("base", "http://localhost:8080", "server base URL")
	wsURL     = flag.String("ws", "ws://localhost:8080/ws", "websocket URL")
	pairCount = flag.Int("pairs", 50, "number of chatting pairs")
	msgCount  = flag.Int("messages", 20, "messages per user")
)

type authResponse struct {
	User struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Token string `json:"token"`
}

func main() {
	flag.Parse()
	log.Printf("starting load test: %d users, %d messages each", *pairCount*2, *msgCount)

	var wg sync.WaitGroup
	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()
	log.Println("load test complete")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)

	a := authenticate(userA)
	b := authenticate(userB)
	if a == nil || b == nil {
		return
	}

	// Link the pair and derive the shared chat id.
	addFriend(a.Token, userB)
	lo, hi := a.User.ID, b.User.ID
	if hi < lo {
		lo, hi = hi, lo
	}
	chatID := fmt.Sprintf("%d:%d", lo, hi)

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go chatLoop(&wsWg, a.Token, chatID, userA)
	go chatLoop(&wsWg, b.Token, chatID, userB)
	wsWg.Wait()
}

// authenticate registers (ignoring "already exists") and logs in.
func authenticate(username string) *authResponse {
	creds := map[string]string{"username": username, "password": "password123"}
	postJSON("/api/register", creds, "")

	resp, err := postJSON("/api/login", creds, "")
	if err != nil {
		log.Printf("login failed [%s]: %v", username, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("login status %d [%s]", resp.StatusCode, username)
		return nil
	}

	var data authResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return &data
}

func addFriend(token, identifier string) {
	resp, err := postJSON("/api/friends/add", map[string]string{"identifier": identifier}, token)
	if err == nil {
		resp.Body.Close()
	}
}

// chatLoop subscribes over the websocket, then posts messages through
// the REST surface while draining incoming frames.
func chatLoop(wg *sync.WaitGroup, token, chatID, username string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", *wsURL, token), nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", username, err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "chatId": chatID}); err != nil {
		log.Printf("subscribe failed [%s]: %v", username, err)
		return
	}

	// Drain the live feed so the server never sees us as slow.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < *msgCount; i++ {
		body := map[string]string{
			"chatId":  chatID,
			"content": fmt.Sprintf("load test message %d from %s", i, username),
		}
		resp, err := postJSON("/api/messages", body, token)
		if err != nil {
			log.Printf("send failed [%s]: %v", username, err)
			return
		}
		resp.Body.Close()
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("%s finished sending %d messages", username, *msgCount)
}

func postJSON(path string, data any, token string) (*http.Response, error) {
	payload, _ := json.Marshal(data)
	req, err := http.NewRequest("POST", *baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
