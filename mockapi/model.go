package mockapi

import "time"

// ServiceDef is a monitored service as configured.
type ServiceDef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Version  string `json:"version"`
	Critical bool   `json:"critical"`
}

// DefaultServices is the stock service inventory.
var DefaultServices = []ServiceDef{
	{ID: "web-server", Name: "Web Server", Type: "nginx", Version: "1.21.0", Critical: true},
	{ID: "database", Name: "Database", Type: "PostgreSQL", Version: "14", Critical: true},
	{ID: "cache", Name: "Cache Server", Type: "Redis", Version: "6.2", Critical: false},
	{ID: "load-balancer", Name: "Load Balancer", Type: "HAProxy", Version: "2.4", Critical: true},
	{ID: "api-gateway", Name: "API Gateway", Type: "Kong", Version: "2.8", Critical: true},
	{ID: "backup", Name: "Backup Service", Type: "Custom", Version: "1.0", Critical: false},
	{ID: "message-queue", Name: "Message Queue", Type: "RabbitMQ", Version: "3.9", Critical: true},
	{ID: "monitoring", Name: "Monitoring", Type: "Prometheus", Version: "2.35", Critical: true},
}

type Metrics struct {
	Servers ServerCounts `json:"servers"`
	CPU     CPU          `json:"cpu"`
	Memory  Memory       `json:"memory"`
	Network Network      `json:"network"`
	Disk    Disk         `json:"disk"`
}

type ServerCounts struct {
	Total       int `json:"total"`
	Online      int `json:"online"`
	Offline     int `json:"offline"`
	Maintenance int `json:"maintenance"`
}

type CPU struct {
	Usage     int     `json:"usage"`
	Cores     int     `json:"cores"`
	Frequency float64 `json:"frequency"`
}

// Memory figures are in GB.
type Memory struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
	Free  float64 `json:"free"`
	Cache float64 `json:"cache"`
}

// Network throughput is in Gbps, latency in milliseconds.
type Network struct {
	Inbound    float64 `json:"inbound"`
	Outbound   float64 `json:"outbound"`
	Latency    float64 `json:"latency"`
	PacketLoss float64 `json:"packetLoss"`
}

// Disk figures are in GB.
type Disk struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
	Free  float64 `json:"free"`
}

type Service struct {
	ServiceDef
	Status       string         `json:"status"`
	Uptime       string         `json:"uptime"`
	ResponseTime int            `json:"responseTime"`
	LastCheck    time.Time      `json:"lastCheck"`
	Metrics      ServiceMetrics `json:"metrics"`
}

type ServiceMetrics struct {
	CPU         float64 `json:"cpu"`
	Memory      float64 `json:"memory"`
	Connections int     `json:"connections"`
}

type Alert struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

type Acknowledgement struct {
	ID             string    `json:"id"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
	AcknowledgedBy string    `json:"acknowledgedBy,omitempty"`
}

type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type NetworkPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Inbound   float64   `json:"inbound"`
	Outbound  float64   `json:"outbound"`
}

type Performance struct {
	CPU     []Point        `json:"cpu"`
	Memory  []Point        `json:"memory"`
	Network []NetworkPoint `json:"network"`
}
