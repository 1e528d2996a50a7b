package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"resume_rewards/internal/logger"
	"resume_rewards/internal/ws"

	"github.com/gorilla/websocket"
)

// ws_smoke opens an account on a running server, subscribes to its live
// feed and checks that a daily-login credit is pushed.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "http://127.0.0.1:" + port

	token := openAccount(base, fmt.Sprintf("smoke-%d", time.Now().Unix()))

	conn, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:"+port+"/ws?token="+token, nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	expect(conn, ws.MsgReady)

	req, _ := http.NewRequest(http.MethodPost, base+"/api/v1/points/daily-login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("daily login", "error", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		logger.Fatal("daily login", "status", res.StatusCode)
	}

	msg := expect(conn, ws.MsgEvent)
	logger.Info("event received", "type", msg.Event.Type, "balance", msg.Event.Balance, "level", msg.Event.Level)
	fmt.Println("ws smoke ok")
}

func openAccount(base, name string) string {
	body, _ := json.Marshal(map[string]string{"name": name})
	res, err := http.Post(base+"/api/v1/accounts", "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Fatal("open account", "error", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		logger.Fatal("open account", "status", res.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		logger.Fatal("decode account", "error", err)
	}
	return out.Token
}

func expect(conn *websocket.Conn, msgType string) ws.Message {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m ws.Message
		if err := conn.ReadJSON(&m); err != nil {
			logger.Fatal("read", "want", msgType, "error", err)
		}
		if m.Type == msgType {
			return m
		}
	}
}
