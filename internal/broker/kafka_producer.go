package broker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress/lz4"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducerClient streams page results to kafka in batches. Run returns once
// pageChan is closed and the last batch is written.
type KafkaProducerClient struct {
	pageChan <-chan *model.PageResult
	writer   MessageWriter
	cfg      *config.KafkaConfig
	log      *slog.Logger
	wg       *sync.WaitGroup
}

func NewKafkaProducer(pageChan <-chan *model.PageResult, cfg *config.KafkaConfig, log *slog.Logger,
	wg *sync.WaitGroup) *KafkaProducerClient {
	return NewKafkaProducerWithWriter(pageChan, NewKafkaWriter(cfg, log), cfg, log, wg)
}

func NewKafkaProducerWithWriter(pageChan <-chan *model.PageResult, writer MessageWriter, cfg *config.KafkaConfig,
	log *slog.Logger, wg *sync.WaitGroup) *KafkaProducerClient {
	return &KafkaProducerClient{
		pageChan: pageChan,
		writer:   writer,
		cfg:      cfg,
		log:      log,
		wg:       wg,
	}
}

func NewKafkaWriter(cfg *config.KafkaConfig, log *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Addr, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		BatchSize:    1,                // the parameter is controlled by 'batchTicker' variable
		BatchTimeout: time.Millisecond, // the parameter is controlled by 'batch' variable
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Async:        cfg.Async,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to send messages to kafka.", slog.String("err", err.Error()))
			}
		},
		Compression: kafka.Compression(new(lz4.Codec).Code()),
	}
}

func (p *KafkaProducerClient) Run() {
	defer p.wg.Done()
	p.log.Info("starting kafka producer...", slog.String("topic", p.cfg.Topic))
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Error("failed to close kafka writer.", slog.String("err", err.Error()))
		}
	}()

	batchSize := max(p.cfg.BatchSize, 1)
	batchTimeout := p.cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	batchTicker := time.NewTicker(batchTimeout)
	defer batchTicker.Stop()

	batch := make([]kafka.Message, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.writeMessages(batch)
		batch = batch[:0]
	}

	for {
		select {
		case page, ok := <-p.pageChan:
			if !ok {
				// Some messages may remain in the batch after pageChan is closed
				flush()
				p.log.Info("stopping kafka writer.")
				return
			}
			body, err := jsoniter.Marshal(page)
			if err != nil {
				p.log.Error("marshaling error.", slog.String("err", err.Error()), slog.String("url", page.URL))
				continue
			}
			batch = append(batch, kafka.Message{
				Key:   []byte(page.URL),
				Value: body,
			})
			if len(batch) >= batchSize {
				flush()
			}
		case <-batchTicker.C:
			flush()
		}
	}
}

func (p *KafkaProducerClient) writeMessages(batch []kafka.Message) {
	timeout := p.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.log.Error("failed to send messages to kafka.", slog.String("err", err.Error()))
		return
	}
	p.log.Debug("successfully sent messages to kafka.", slog.Int("batch length", len(batch)))
}
