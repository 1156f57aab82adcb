package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"
)

// -------------------- 终端私信客户端 --------------------
// 登录后打开一条WebSocket连接，选择会话对象后收发私信
// 进入会话时通过HTTP拉取历史（切换会话不保留），收到消息按ID去重

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type userInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type messageInfo struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	Sender    uint   `json:"sender"`
	Receiver  uint   `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
	Seen      bool   `json:"seen"`
}

type loginData struct {
	User        userInfo `json:"user"`
	AccessToken string   `json:"access_token"`
}

// inboundEvent 服务端推送事件（message / typing / messageSeenUpdate）
type inboundEvent struct {
	Type      string       `json:"type"`
	Message   *messageInfo `json:"message,omitempty"`
	UserID    uint         `json:"user_id,omitempty"`
	IsTyping  bool         `json:"is_typing,omitempty"`
	MessageID uint         `json:"message_id,omitempty"`
	Seen      bool         `json:"seen,omitempty"`
}

type chatClient struct {
	server string
	token  string
	self   userInfo
	conn   *websocket.Conn

	mu      sync.Mutex
	partner userInfo        // 当前会话对象
	known   map[uint]bool   // 已接收消息ID，按ID去重
	users   []userInfo

	wmu sync.Mutex // 串行化WebSocket写入（主循环、读循环回执与心跳并发发送）
}

func main() {
	server := flag.String("server", "http://localhost:8080", "服务端地址")
	flag.Parse()

	c := &chatClient{
		server: strings.TrimRight(*server, "/"),
		known:  make(map[uint]bool),
	}

	if err := c.login(); err != nil {
		fmt.Println("登录失败:", err)
		os.Exit(1)
	}
	if err := c.connect(); err != nil {
		fmt.Println("连接失败:", err)
		os.Exit(1)
	}
	defer c.conn.Close()

	go c.readLoop()
	go c.heartbeatLoop()

	fmt.Println("命令: /users 列出用户  /to <id> 切换会话  /quit 退出")
	if err := c.listUsers(); err != nil {
		fmt.Println("获取用户列表失败:", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/users":
			if err := c.listUsers(); err != nil {
				fmt.Println("获取用户列表失败:", err)
			}
		case strings.HasPrefix(line, "/to "):
			c.switchPartner(strings.TrimSpace(strings.TrimPrefix(line, "/to ")))
		default:
			c.sendMessage(line)
		}
	}
}

// login HTTP登录，密码不回显
func (c *chatClient) login() error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("用户名: ")
	username, _ := reader.ReadString('\n')
	fmt.Print("密码: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]string{
		"usernameOrEmail": strings.TrimSpace(username),
		"password":        string(pwBytes),
	})
	data, err := c.post("/api/v1/users/login", body)
	if err != nil {
		return err
	}

	var login loginData
	if err := json.Unmarshal(data, &login); err != nil {
		return err
	}
	c.token = login.AccessToken
	c.self = login.User
	fmt.Printf("你好, %s (id=%d)\n", c.self.Username, c.self.ID)
	return nil
}

// connect 打开WebSocket连接，握手时携带token
func (c *chatClient) connect() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s/ws?token=%s", scheme, u.Host, url.QueryEscape(c.token))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// readLoop 处理服务端推送
func (c *chatClient) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			fmt.Println("\n连接已断开")
			os.Exit(0)
		}

		var ev inboundEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "message":
			c.onMessage(ev.Message)
		case "typing":
			c.onTyping(ev.UserID, ev.IsTyping)
		case "messageSeenUpdate":
			fmt.Printf("  [已读] 消息 %d\n", ev.MessageID)
		}
	}
}

// onMessage 收到消息：只接受属于当前会话的消息，按ID去重（回执与推送可能重复到达）
func (c *chatClient) onMessage(msg *messageInfo) {
	if msg == nil {
		return
	}

	c.mu.Lock()
	partner := c.partner
	if c.known[msg.ID] {
		c.mu.Unlock()
		return
	}
	c.known[msg.ID] = true
	c.mu.Unlock()

	// 只渲染当前会话对象参与的消息
	if msg.Sender != partner.ID && msg.Receiver != partner.ID {
		return
	}

	c.printMessage(msg)

	// 收到对方的消息即上报已读回执
	if msg.Sender == partner.ID {
		c.send(map[string]interface{}{
			"type":       "messageSeen",
			"message_id": msg.ID,
		})
	}
}

func (c *chatClient) onTyping(userID uint, isTyping bool) {
	c.mu.Lock()
	partner := c.partner
	c.mu.Unlock()
	if userID != partner.ID {
		return
	}
	if isTyping {
		fmt.Printf("  [%s 正在输入...]\n", partner.Username)
	}
}

func (c *chatClient) printMessage(msg *messageInfo) {
	from := "我"
	if msg.Sender != c.self.ID {
		c.mu.Lock()
		from = c.partner.Username
		c.mu.Unlock()
	}
	ts := time.Unix(msg.Timestamp, 0).Format("15:04:05")
	fmt.Printf("[%s] %s: %s\n", ts, from, msg.Content)
}

// sendMessage 向当前会话对象发送消息
func (c *chatClient) sendMessage(content string) {
	c.mu.Lock()
	partner := c.partner
	c.mu.Unlock()
	if partner.ID == 0 {
		fmt.Println("请先用 /to <id> 选择会话对象")
		return
	}

	// 输入状态信号：发送前置true，发送后复位
	c.send(map[string]interface{}{"type": "typing", "receiver_id": partner.ID, "is_typing": true})
	c.send(map[string]interface{}{
		"type":     "sendMessage",
		"content":  content,
		"receiver": partner.ID,
	})
	c.send(map[string]interface{}{"type": "typing", "receiver_id": partner.ID, "is_typing": false})
}

// switchPartner 切换会话对象并拉取历史
func (c *chatClient) switchPartner(arg string) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		fmt.Println("无效的用户ID")
		return
	}

	c.mu.Lock()
	var found *userInfo
	for i := range c.users {
		if c.users[i].ID == uint(id) {
			found = &c.users[i]
			break
		}
	}
	if found == nil {
		c.mu.Unlock()
		fmt.Println("未知用户，先执行 /users")
		return
	}
	c.partner = *found
	// 切换会话不保留旧消息，历史重新拉取
	c.known = make(map[uint]bool)
	c.mu.Unlock()

	fmt.Printf("--- 与 %s 的会话 ---\n", found.Username)
	c.loadHistory(uint(id))
}

// loadHistory 拉取与当前会话对象的历史消息
// 离线期间收到的消息只能通过这里补齐
func (c *chatClient) loadHistory(partnerID uint) {
	data, err := c.get(fmt.Sprintf("/api/v1/conversations/%d/messages", partnerID))
	if err != nil {
		fmt.Println("获取历史消息失败:", err)
		return
	}

	var messages []*messageInfo
	if err := json.Unmarshal(data, &messages); err != nil {
		return
	}

	for _, msg := range messages {
		c.mu.Lock()
		c.known[msg.ID] = true
		c.mu.Unlock()
		c.printMessage(msg)

		// 对方发来的未读消息补报已读回执
		if msg.Sender == partnerID && !msg.Seen {
			c.send(map[string]interface{}{
				"type":       "messageSeen",
				"message_id": msg.ID,
			})
		}
	}
}

// listUsers 列出可会话的用户
func (c *chatClient) listUsers() error {
	data, err := c.get("/api/v1/users")
	if err != nil {
		return err
	}

	var users []userInfo
	if err := json.Unmarshal(data, &users); err != nil {
		return err
	}

	c.mu.Lock()
	c.users = users
	c.mu.Unlock()

	fmt.Println("用户列表:")
	for _, u := range users {
		fmt.Printf("  %d  %-16s %s\n", u.ID, u.Username, u.Status)
	}
	return nil
}

// heartbeatLoop 周期性上报心跳，维持服务端在线状态的TTL
func (c *chatClient) heartbeatLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.send(map[string]interface{}{"type": "heartbeat"})
	}
}

func (c *chatClient) send(payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		fmt.Println("发送失败:", err)
	}
}

// -------------------- HTTP辅助 --------------------

func (c *chatClient) post(path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodPost, c.server+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *chatClient) get(path string) (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodGet, c.server+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *chatClient) do(req *http.Request) (json.RawMessage, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("%s (code=%d)", env.Message, env.Code)
	}
	return env.Data, nil
}
