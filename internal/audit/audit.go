package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"toyadmin/internal/models"
)

// Record captures one attempted status transition, whatever its outcome.
type Record struct {
	Timestamp time.Time          `json:"timestamp"`
	OrderID   int64              `json:"order_id"`
	OldStatus models.OrderStatus `json:"old_status"`
	NewStatus models.OrderStatus `json:"new_status"`
	Actor     string             `json:"actor"`
	Endpoint  string             `json:"endpoint"`
	Outcome   string             `json:"outcome"`
}

type PoolConfig struct {
	BatchSize   int
	Timeout     time.Duration
	ChannelSize int
}

type Processor interface {
	Process(batch []Record) error
}

// DBProcessor writes batches into the audit_logs table with a single
// multi-row insert.
type DBProcessor struct {
	db *sql.DB
}

func NewDBProcessor(db *sql.DB) *DBProcessor {
	return &DBProcessor{db: db}
}

func (p *DBProcessor) Process(batch []Record) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO audit_logs (timestamp, order_id, old_status, new_status, actor, endpoint, outcome) VALUES `)

	params := []interface{}{}
	paramIndex := 1
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4, paramIndex+5, paramIndex+6))
		paramIndex += 7
		params = append(params, rec.Timestamp, rec.OrderID, rec.OldStatus, rec.NewStatus, rec.Actor, rec.Endpoint, rec.Outcome)
	}
	if _, err := p.db.Exec(sb.String(), params...); err != nil {
		return fmt.Errorf("audit db insert: %w", err)
	}
	return nil
}

// LogProcessor mirrors batches into the structured log. Filter, when set,
// keeps only records whose outcome contains the word.
type LogProcessor struct {
	Log    *zap.SugaredLogger
	Filter string
}

func (p *LogProcessor) Process(batch []Record) error {
	for _, rec := range batch {
		if p.Filter != "" &&
			!strings.Contains(strings.ToLower(rec.Outcome), strings.ToLower(p.Filter)) {
			continue
		}
		p.Log.Infow("audit",
			"order_id", rec.OrderID,
			"old_status", rec.OldStatus,
			"new_status", rec.NewStatus,
			"actor", rec.Actor,
			"endpoint", rec.Endpoint,
			"outcome", rec.Outcome,
		)
	}
	return nil
}

// TaskQueue is where OutboxProcessor parks serialized records for the
// Kafka relay.
type TaskQueue interface {
	CreateTask(ctx context.Context, payload []byte) error
}

// OutboxProcessor serializes each record into the outbox table so the
// relay can publish it to Kafka with retry bookkeeping.
type OutboxProcessor struct {
	queue TaskQueue
}

func NewOutboxProcessor(queue TaskQueue) *OutboxProcessor {
	return &OutboxProcessor{queue: queue}
}

func (p *OutboxProcessor) Process(batch []Record) error {
	for _, rec := range batch {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		if err := p.queue.CreateTask(context.Background(), payload); err != nil {
			return fmt.Errorf("enqueue audit record: %w", err)
		}
	}
	return nil
}

// WorkerPool batches records and hands each full or timed-out batch to
// every processor. Log never blocks the caller: a full channel drops the
// record.
type WorkerPool struct {
	inputCh    chan Record
	processors []Processor
	batchSize  int
	timeout    time.Duration
	log        *zap.SugaredLogger

	wg sync.WaitGroup
}

func NewWorkerPool(cfg PoolConfig, log *zap.SugaredLogger, processors ...Processor) *WorkerPool {
	return &WorkerPool{
		inputCh:    make(chan Record, cfg.ChannelSize),
		processors: processors,
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (p *WorkerPool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

func (p *WorkerPool) worker(ctx context.Context) {
	var batch []Record
	timer := time.NewTimer(p.timeout)
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.processBatch(batch)
			}
			return
		case rec := <-p.inputCh:
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if !timer.Stop() {
					<-timer.C
				}
				p.processBatch(batch)
				batch = nil
				timer.Reset(p.timeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				p.processBatch(batch)
				batch = nil
			}
			timer.Reset(p.timeout)
		}
	}
}

func (p *WorkerPool) processBatch(batch []Record) {
	for _, proc := range p.processors {
		if err := proc.Process(batch); err != nil {
			p.log.Errorw("audit batch processing failed", "error", err)
		}
	}
}

func (p *WorkerPool) Log(record Record) {
	select {
	case p.inputCh <- record:
	default:
		p.log.Warn("audit channel full, dropping record")
	}
}

func (p *WorkerPool) Shutdown(cancel context.CancelFunc) {
	cancel()
	p.wg.Wait()
}
