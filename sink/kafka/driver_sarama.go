// Package kafka publishes scored chunks as JSON records.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"tauflow/internal/logging"
	"tauflow/sink"
)

type Config struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Acks     int16    `yaml:"required_acks"` // 0,1,-1
	ClientID string   `yaml:"client_id"`

	// MaxMessageBytes caps one produced message; chunks are split into
	// several records to stay below it. Defaults to sarama's 1000000.
	MaxMessageBytes int `yaml:"max_message_bytes"`
}

// recordOverhead is reserved per message for the key, the JSON envelope
// and the kafka message header.
const recordOverhead = 512

// Record is the message value of one chunk.
type Record struct {
	RunID   string    `json:"run_id"`
	Start   int       `json:"start"`
	Rows    int       `json:"rows"`
	Outputs int       `json:"outputs"`
	Scores  []float32 `json:"scores"`
}

type producerFactory func(brokers []string, cfg *sarama.Config) (sarama.AsyncProducer, error)

type driver struct {
	cfg         Config
	newProducer producerFactory
	p           sarama.AsyncProducer

	mu      sync.Mutex
	layout  sink.Layout
	pending []*sarama.ProducerMessage
	done    bool
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	sc := sarama.NewConfig()
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = sc.Producer.MaxMessageBytes
	}
	if cfg.MaxMessageBytes <= recordOverhead {
		return fmt.Errorf("kafka-sink: max_message_bytes must exceed %d", recordOverhead)
	}
	d.cfg = cfg
	sarama.Logger = slog.NewLogLogger(logging.With("sarama").Handler(), slog.LevelDebug)

	sc.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Errors = true
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	var err error
	d.p, err = d.newProducer(cfg.Brokers, sc)
	return err
}

func (d *driver) Begin(l sink.Layout) error {
	d.mu.Lock()
	d.layout = l
	d.mu.Unlock()
	return nil
}

// Push encodes the chunk as one or more records; records are only handed
// to the producer on Close.
func (d *driver) Push(s sink.Scores) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := sink.Check(d.layout, s); err != nil {
		return err
	}
	// at most 24 bytes per JSON float32, refined by encode
	perRow := max(1, 24*s.Outputs)
	rows := max(1, (d.cfg.MaxMessageBytes-recordOverhead)/perRow)
	for start := 0; start < s.Rows; start += rows {
		stop := min(start+rows, s.Rows)
		if err := d.encode(s.Start+start, stop-start, s.Outputs, s.Values[start*s.Outputs:stop*s.Outputs]); err != nil {
			return err
		}
	}
	return nil
}

// encode appends one record, halving it until the value fits the budget.
func (d *driver) encode(start, rows, outputs int, values []float32) error {
	val, err := json.Marshal(Record{
		RunID:   d.layout.RunID,
		Start:   start,
		Rows:    rows,
		Outputs: outputs,
		Scores:  values,
	})
	if err != nil {
		return err
	}
	if len(val) > d.cfg.MaxMessageBytes-recordOverhead {
		if rows == 1 {
			return fmt.Errorf("kafka-sink: one row encodes to %d bytes, over max_message_bytes %d", len(val), d.cfg.MaxMessageBytes)
		}
		half := rows / 2
		if err := d.encode(start, half, outputs, values[:half*outputs]); err != nil {
			return err
		}
		return d.encode(start+half, rows-half, outputs, values[half*outputs:])
	}
	d.pending = append(d.pending, &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(d.layout.RunID),
		Value: sarama.ByteEncoder(val),
	})
	return nil
}

// Close produces the pending records and waits for the producer to flush.
// Errors are drained while producing so a full error channel cannot stall
// the input.
func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return nil
	}
	d.done = true
	if d.p == nil {
		return nil
	}

	var failed sarama.ProducerErrors
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for pe := range d.p.Errors() {
			failed = append(failed, pe)
		}
	}()
	for _, m := range d.pending {
		d.p.Input() <- m
	}
	n := len(d.pending)
	d.pending = nil
	d.p.AsyncClose()
	<-drained

	if len(failed) > 0 {
		return fmt.Errorf("kafka-sink: %d of %d records failed: %w", len(failed), n, failed[0].Err)
	}
	logging.With("sink.kafka").Info("published scores", "topic", d.cfg.Topic, "records", n, "run", d.layout.RunID)
	return nil
}

func (d *driver) Abort(cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dropped := len(d.pending)
	d.pending = nil
	d.done = true
	if d.p != nil {
		_ = d.p.Close()
	}
	logging.With("sink.kafka").Warn("dropping records", "records", dropped, "err", cause)
}

func init() {
	sink.Register("kafka", func() sink.Adapter {
		return &driver{newProducer: sarama.NewAsyncProducer}
	})
}
