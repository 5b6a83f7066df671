// events-tail follows the library sync-event topic and prints each
// event as a JSON line. Useful for watching what a long resync is
// doing without attaching a debugger to the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"

	"github.com/steamdash/internal/events"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "library-sync-events", "Kafka topic")
	groupID := flag.String("group", "events-tail", "Consumer group id")
	fromStart := flag.Bool("from-start", false, "Consume from the oldest offset")
	flag.Parse()

	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	if *fromStart {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	group, err := sarama.NewConsumerGroup(strings.Split(*brokers, ","), *groupID, config)
	if err != nil {
		log.Fatalf("creating consumer group: %v", err)
	}
	defer group.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	handler := &tailHandler{}
	for {
		if err := group.Consume(ctx, []string{*topic}, handler); err != nil {
			if err == sarama.ErrClosedConsumerGroup {
				return
			}
			log.Printf("consume error: %v", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type tailHandler struct{}

func (h *tailHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *tailHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *tailHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event events.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("skipping malformed event at offset %d: %v", message.Offset, err)
			session.MarkMessage(message, "")
			continue
		}

		line, _ := json.Marshal(event)
		fmt.Println(string(line))
		session.MarkMessage(message, "")
	}
	return nil
}
