package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// WinSubmission mirrors the consumer's expected message format
type WinSubmission struct {
	EventID        string `json:"event_id"`
	WinnerEmail    string `json:"winner_email"`
	WinnerName     string `json:"winner_name,omitempty"`
	Position       string `json:"position"`
	SubEventName   string `json:"sub_event_name,omitempty"`
	Prize          string `json:"prize,omitempty"`
	WinnerImageURL string `json:"winner_image_url,omitempty"`
}

var firstNames = []string{
	"Aarav", "Ananya", "Dhruv", "Isha", "Kabir", "Meera", "Nikhil", "Priya",
	"Rohan", "Sanya", "Tanvi", "Varun", "Aditi", "Harsh", "Kavya", "Rahul",
}

var lastNames = []string{
	"Sharma", "Patel", "Reddy", "Iyer", "Khan", "Nair", "Gupta", "Menon",
	"Das", "Joshi", "Kulkarni", "Bose",
}

var subEvents = []string{
	"Solo Singing", "Group Dance", "Debate", "Quiz", "Coding Sprint",
	"Photography", "Street Play", "Table Tennis", "Chess", "Poetry Slam",
}

var positions = []string{
	"1st Place", "2nd Place", "3rd Place", "Winner", "Runner Up",
	"1", "2", "3", "Special Mention", "Finalist",
}

func randomStudent(idx int) (name, email string) {
	first := firstNames[idx%len(firstNames)]
	last := lastNames[(idx/len(firstNames))%len(lastNames)]
	name = first + " " + last
	email = fmt.Sprintf("%s.%s%d@college.edu", strings.ToLower(first), strings.ToLower(last), idx)
	return name, email
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "council-wins", "Kafka topic")
	eventID := flag.String("event", "", "Event ID to record wins against (required)")
	totalWins := flag.Int("wins", 50, "Number of win records to produce")
	updatesPerSecond := flag.Int("rate", 0, "Continuous win records per second after seeding (0 = seed only)")
	duration := flag.Duration("duration", 0, "Duration to run continuous updates (0 = forever)")
	flag.Parse()

	if *eventID == "" {
		log.Fatal("-event is required")
	}

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("Council rankings win producer")
	fmt.Printf("  Brokers: %s\n", *brokers)
	fmt.Printf("  Topic:   %s\n", *topic)
	fmt.Printf("  Event:   %s\n", *eventID)
	fmt.Printf("  Wins:    %d\n", *totalWins)
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	sendWin := func(idx int) {
		name, email := randomStudent(idx)
		sub := WinSubmission{
			EventID:      *eventID,
			WinnerEmail:  email,
			WinnerName:   name,
			Position:     positions[rand.Intn(len(positions))],
			SubEventName: subEvents[rand.Intn(len(subEvents))],
		}

		data, err := json.Marshal(sub)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(sub.WinnerEmail),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
		}
	}

	finish := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	// Seed the initial win records
	fmt.Printf("Seeding %d win records...\n", *totalWins)
	for i := 0; i < *totalWins; i++ {
		sendWin(i)
	}
	fmt.Printf("Seeded %d win records\n", *totalWins)

	if *updatesPerSecond <= 0 {
		finish()
		return
	}

	// Trickle continuous wins to demo live ranking updates
	fmt.Printf("Producing %d wins/sec, Ctrl+C to stop\n", *updatesPerSecond)

	interval := time.Second / time.Duration(*updatesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	idx := *totalWins
	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			finish()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				finish()
				return
			}
			sendWin(idx)
			idx++
		}
	}
}
