// Package main - agitator
// Load generator for the lodging desk: many WebSocket clients race
// check-ins, check-outs and reassignments over the same few rooms.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Rooms          []string
}

// Stats tracks performance metrics
type Stats struct {
	CommandsSent     int64
	MessagesReceived int64
	Accepted         int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration

	mu     sync.Mutex
	byKind map[string]int64
}

func (s *Stats) reject(kind string) {
	atomic.AddInt64(&s.Rejected, 1)
	s.mu.Lock()
	s.byKind[kind]++
	s.mu.Unlock()
}

// message mirrors the server's envelope; only result payloads are decoded.
type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type result struct {
	RequestID string `json:"requestId"`
	OK        bool   `json:"ok"`
	Kind      string `json:"kind"`
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Command interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	rooms := flag.String("rooms", "A101,A102,B201,B202", "Comma-separated rooms the clients fight over")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Rooms:          strings.Split(strings.ToUpper(*rooms), ","),
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - lodging desk load test")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Rooms:    %s\n", strings.Join(config.Rooms, ", "))
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	started := time.Now()
	stats := runLoadTest(ctx, config)
	printResults(stats, config, time.Since(started))
}

func runLoadTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
		byKind:    make(map[string]int64),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%d accepted=%d rejected=%d errors=%d\n",
					atomic.LoadInt64(&stats.CommandsSent),
					atomic.LoadInt64(&stats.Accepted),
					atomic.LoadInt64(&stats.Rejected),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

// client is one simulated desk operator who keeps checking the same
// lecturer in and out of whatever room it can get.
type client struct {
	id     int
	name   string
	config Config
	stats  *Stats
	rnd    *rand.Rand

	mu      sync.Mutex
	pending map[string]time.Time
	seq     int
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	c := &client{
		id:      clientID,
		name:    fmt.Sprintf("Lecturer %03d", clientID),
		config:  config,
		stats:   stats,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID))),
		pending: make(map[string]time.Time),
	}

	go c.receive(conn)

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Leave the room for the next run.
			_ = conn.WriteJSON(c.command("CHECK_OUT"))
			return
		case <-ticker.C:
			if err := conn.WriteJSON(c.next()); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CommandsSent, 1)
		}
	}
}

func (c *client) receive(conn *websocket.Conn) {
	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		atomic.AddInt64(&c.stats.MessagesReceived, 1)
		if m.Type != "result" {
			continue
		}

		var r result
		if err := json.Unmarshal(m.Payload, &r); err != nil {
			atomic.AddInt64(&c.stats.Errors, 1)
			continue
		}

		c.mu.Lock()
		sentAt, ok := c.pending[r.RequestID]
		delete(c.pending, r.RequestID)
		c.mu.Unlock()
		if ok {
			c.stats.mu.Lock()
			c.stats.Latencies = append(c.stats.Latencies, time.Since(sentAt))
			c.stats.mu.Unlock()
		}

		if r.OK {
			atomic.AddInt64(&c.stats.Accepted, 1)
		} else {
			c.stats.reject(r.Kind)
		}
	}
}

// next picks the following command. Check-ins use a fixed name so a client
// that is already checked in collides with itself as well as with others.
func (c *client) next() map[string]interface{} {
	switch n := c.rnd.Intn(10); {
	case n < 5:
		return c.command("CHECK_IN")
	case n < 8:
		return c.command("CHECK_OUT")
	case n < 9:
		return c.command("EDIT_ROOM")
	default:
		return c.command("REASSIGN_ROOM")
	}
}

func (c *client) command(kind string) map[string]interface{} {
	c.mu.Lock()
	c.seq++
	reqID := fmt.Sprintf("c%03d-%d", c.id, c.seq)
	c.pending[reqID] = time.Now()
	c.mu.Unlock()

	cmd := map[string]interface{}{
		"type":      kind,
		"requestId": reqID,
	}

	switch kind {
	case "CHECK_IN":
		cmd["name"] = c.name
		cmd["className"] = "LOAD-101"
		cmd["roomNumber"] = c.room()
		cmd["numberOfDays"] = 1 + c.rnd.Intn(7)
	case "CHECK_OUT":
		cmd["name"] = c.name
	case "EDIT_ROOM":
		// Renaming onto another existing room always conflicts.
		cmd["number"] = c.room()
		cmd["newNumber"] = c.room()
	case "REASSIGN_ROOM":
		// Ids are server-generated; an unknown id exercises NOT_FOUND.
		cmd["lecturerId"] = c.name
		cmd["roomNumber"] = c.room()
	}
	return cmd
}

func (c *client) room() string {
	return c.config.Rooms[c.rnd.Intn(len(c.config.Rooms))]
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.CommandsSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	accepted := atomic.LoadInt64(&stats.Accepted)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Commands Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Accepted:          %d\n", accepted)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Transport Errors:  %d\n", errs)

	stats.mu.Lock()
	kinds := make([]string, 0, len(stats.byKind))
	for k := range stats.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-14s %d\n", k, stats.byKind[k])
	}
	latencies := append([]time.Duration(nil), stats.Latencies...)
	byKind := make(map[string]int64, len(stats.byKind))
	for k, v := range stats.byKind {
		byKind[k] = v
	}
	stats.mu.Unlock()

	throughput := float64(sent) / elapsed.Seconds()
	fmt.Printf("Throughput:        %.2f cmd/sec\n", throughput)

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var total time.Duration
		for _, l := range latencies {
			total += l
		}

		fmt.Printf("\nRound trip:\n")
		fmt.Printf("  Min: %v\n", latencies[0])
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(latencies)))
		fmt.Printf("  P95: %v\n", latencies[len(latencies)*95/100])
		fmt.Printf("  Max: %v\n", latencies[len(latencies)-1])
	}

	// Every command must be answered; rejections are expected under contention.
	answered := accepted + rejected
	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && answered >= sent:
		fmt.Println("PASS: every command was answered")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Printf("WARN: %d of %d commands unanswered\n", sent-answered, sent)
	default:
		fmt.Println("FAIL: high transport error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"commands_sent":      sent,
		"messages_received":  recv,
		"accepted":           accepted,
		"rejected":           rejected,
		"rejected_by_kind":   byKind,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"rooms":    config.Rooms,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("load_test_results.json", jsonData, 0644); err != nil {
		log.Printf("Failed to save results: %v", err)
		return
	}
	fmt.Println("\nResults saved to load_test_results.json")
}
