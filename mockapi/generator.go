package mockapi

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	performancePoints = 24
	alertCount        = 5
)

type alertTemplate struct {
	title    string
	message  string
	severity string
}

var alertTemplates = []alertTemplate{
	{"High CPU Usage", "Server {server} CPU at {value}%", "warning"},
	{"Service Recovered", "{service} is back online", "success"},
	{"Memory Warning", "Memory usage exceeds {value}%", "warning"},
	{"Network Latency", "High latency detected: {value}ms", "critical"},
	{"Backup Complete", "Daily backup completed successfully", "info"},
	{"Security Update", "Security patches available", "info"},
}

// Generator produces randomized monitoring payloads. It is safe for
// concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	services []ServiceDef
}

// NewGenerator returns a generator seeded with seed so runs are repeatable.
func NewGenerator(seed uint64, services []ServiceDef, now func() time.Time) *Generator {
	if len(services) == 0 {
		services = DefaultServices
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:      now,
		services: services,
	}
}

func (g *Generator) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rng

	return Metrics{
		Servers: ServerCounts{
			Total:       24 + r.IntN(5),
			Online:      22 + r.IntN(3),
			Offline:     r.IntN(2),
			Maintenance: r.IntN(2),
		},
		CPU: CPU{Usage: 45 + r.IntN(35), Cores: 128, Frequency: 2.4},
		Memory: Memory{
			Total: 64,
			Used:  25 + r.Float64()*30,
			Free:  39 - r.Float64()*30,
			Cache: 5 + r.Float64()*10,
		},
		Network: Network{
			Inbound:    r.Float64()*2 + 0.5,
			Outbound:   r.Float64()*1.5 + 0.3,
			Latency:    5 + r.Float64()*20,
			PacketLoss: r.Float64() * 0.5,
		},
		Disk: Disk{
			Total: 1000,
			Used:  450 + r.Float64()*200,
			Free:  550 - r.Float64()*200,
		},
	}
}

func (g *Generator) Services() []Service {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rng
	now := g.now().UTC()

	out := make([]Service, 0, len(g.services))
	for _, def := range g.services {
		status := "online"
		if r.Float64() <= 0.1 {
			status = "offline"
			if r.Float64() > 0.5 {
				status = "warning"
			}
		}
		uptime := "--"
		if r.Float64() > 0.5 {
			uptime = strconv.FormatFloat(98+r.Float64()*1.99, 'f', 2, 64)
		}
		out = append(out, Service{
			ServiceDef:   def,
			Status:       status,
			Uptime:       uptime,
			ResponseTime: 10 + r.IntN(100),
			LastCheck:    now,
			Metrics: ServiceMetrics{
				CPU:         r.Float64() * 100,
				Memory:      r.Float64() * 100,
				Connections: r.IntN(1000),
			},
		})
	}
	return out
}

func (g *Generator) Alerts() []Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rng
	now := g.now().UTC()

	out := make([]Alert, alertCount)
	for i := range out {
		tpl := alertTemplates[r.IntN(len(alertTemplates))]
		msg := strings.NewReplacer(
			"{server}", fmt.Sprintf("SRV-%d", r.IntN(10)+1),
			"{service}", g.services[r.IntN(len(g.services))].Name,
			"{value}", strconv.Itoa(70+r.IntN(30)),
		).Replace(tpl.message)

		out[i] = Alert{
			ID:        uuid.NewString(),
			Title:     tpl.title,
			Message:   msg,
			Severity:  tpl.severity,
			Timestamp: now.Add(-time.Duration(r.Int64N(int64(time.Hour)))),
		}
	}
	return out
}

func (g *Generator) Performance() Performance {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rng
	now := g.now().UTC()

	p := Performance{
		CPU:     make([]Point, performancePoints),
		Memory:  make([]Point, performancePoints),
		Network: make([]NetworkPoint, performancePoints),
	}
	for i := 0; i < performancePoints; i++ {
		ts := now.Add(-time.Duration(performancePoints-i) * time.Hour)
		p.CPU[i] = Point{Timestamp: ts, Value: 40 + r.Float64()*40 + math.Sin(float64(i)/3)*10}
		p.Memory[i] = Point{Timestamp: ts, Value: 30 + r.Float64()*30 + math.Cos(float64(i)/4)*10}
		p.Network[i] = NetworkPoint{Timestamp: ts, Inbound: r.Float64() * 2, Outbound: r.Float64() * 1.5}
	}
	return p
}

// chance reports true with probability p.
func (g *Generator) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

// between returns a duration uniformly drawn from [lo, hi].
func (g *Generator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + time.Duration(g.rng.Int64N(int64(hi-lo)+1))
}
