package api

import (
	"fmt"
	"time"

	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 30 * time.Second

// SSEClient represents an SSE client connection
type SSEClient struct {
	TaskID  string
	Channel chan task.Task
}

// SSEManager fans task updates out to connected SSE clients
type SSEManager struct {
	clients    map[string][]*SSEClient
	register   chan *SSEClient
	unregister chan *SSEClient
	broadcast  chan task.Task
	done       chan struct{}
}

// NewSSEManager creates a new SSE manager
func NewSSEManager() *SSEManager {
	manager := &SSEManager{
		clients:    make(map[string][]*SSEClient),
		register:   make(chan *SSEClient),
		unregister: make(chan *SSEClient),
		broadcast:  make(chan task.Task),
		done:       make(chan struct{}),
	}

	go manager.run()
	return manager
}

// run starts the SSE manager event loop
func (m *SSEManager) run() {
	for {
		select {
		case <-m.done:
			return

		case client := <-m.register:
			m.clients[client.TaskID] = append(m.clients[client.TaskID], client)

		case client := <-m.unregister:
			clients := m.clients[client.TaskID]
			for i, c := range clients {
				if c == client {
					m.clients[client.TaskID] = append(clients[:i], clients[i+1:]...)
					close(c.Channel)
					break
				}
			}
			if len(m.clients[client.TaskID]) == 0 {
				delete(m.clients, client.TaskID)
			}

		case t := <-m.broadcast:
			for _, client := range m.clients[t.ID] {
				select {
				case client.Channel <- t:
				default:
					// Client channel is full, skip
				}
			}
		}
	}
}

// Register registers a new SSE client
func (m *SSEManager) Register(taskID string) *SSEClient {
	client := &SSEClient{
		TaskID:  taskID,
		Channel: make(chan task.Task, 10),
	}
	select {
	case m.register <- client:
	case <-m.done:
	}
	return client
}

// Unregister unregisters an SSE client
func (m *SSEManager) Unregister(client *SSEClient) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast broadcasts a task update to all connected clients
func (m *SSEManager) Broadcast(t task.Task) {
	select {
	case m.broadcast <- t:
	case <-m.done:
	}
}

// Close stops the event loop
func (m *SSEManager) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// HandleSSE streams status events for one task until it reaches a terminal
// state or the client goes away.
func HandleSSE(c *gin.Context, sseManager *SSEManager, taskManager *task.Manager) {
	taskID := c.Param("task_id")

	if _, err := taskManager.GetTask(taskID); err != nil {
		c.JSON(404, gin.H{"error": "Task not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Register before reading the snapshot so no update falls in between
	client := sseManager.Register(taskID)
	defer sseManager.Unregister(client)

	t, err := taskManager.GetTask(taskID)
	if err != nil {
		return
	}
	sendStatus(c, t)
	if t.IsTerminal() {
		return
	}

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case update, ok := <-client.Channel:
			if !ok {
				return
			}
			sendStatus(c, update)
			if update.IsTerminal() {
				return
			}

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}
}

func sendStatus(c *gin.Context, t task.Task) {
	payload := gin.H{
		"task_id": t.ID,
		"status":  t.Status,
		"message": t.Message,
	}
	if t.Result != nil {
		payload["result"] = t.Result
	}
	if t.RepoURL != "" {
		payload["repo_url"] = t.RepoURL
	}
	if t.Error != "" {
		payload["error"] = t.Error
	}
	if t.RawOutput != "" {
		payload["raw_output"] = t.RawOutput
	}
	c.SSEvent("status", payload)
	c.Writer.Flush()
}
