package health

import "time"

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Store       string    `json:"store"`
	EventBus    string    `json:"event_bus"`
	Subscribers int       `json:"subscribers"`
}
