package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"muslink-platform/internal/metrics"
	"muslink-platform/internal/model"
)

// ErrQueueClosed 工作器已关闭，不再接收新的草稿
var ErrQueueClosed = errors.New("recorder: event queue closed")

// WorkerOptions 后台工作器参数
type WorkerOptions struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	// RecordTimeout 单条草稿解析、单批写入各自的超时
	RecordTimeout time.Duration
	// RetryBackoff 草稿因临时错误构建失败时的重试间隔，按次数递增
	RetryBackoff  time.Duration
}

// buildAttempts 临时错误下单条草稿最多尝试的次数
const buildAttempts = 3

// Worker 跳转路径上的事件交给它在后台记录，响应无需等待地理位置解析和落库
type Worker struct {
	recorder      *Recorder
	queue         chan Draft
	batchSize     int
	flushInterval time.Duration
	recordTimeout time.Duration
	retryBackoff  time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	logger  *zap.SugaredLogger
}

// NewWorker 创建后台工作器，需调用 Start 启动
func NewWorker(rec *Recorder, logger *zap.SugaredLogger, opts WorkerOptions) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 3 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &Worker{
		recorder:      rec,
		queue:         make(chan Draft, opts.QueueSize),
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		recordTimeout: opts.RecordTimeout,
		retryBackoff:  opts.RetryBackoff,
		logger:        logger.Named("event_worker"),
	}
}

// Start 启动后台写入循环
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.logger.Info("启动事件工作器...")
	w.wg.Add(1)
	go w.loop()
}

// Enqueue 非阻塞地提交草稿。队列已满时改由独立协程直接记录，
// 既不阻塞调用方，也不丢事件
func (w *Worker) Enqueue(d Draft) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrQueueClosed
	}

	select {
	case w.queue <- d:
		metrics.EventQueueDepth.Set(float64(len(w.queue)))
	default:
		metrics.EventQueueOverflow.Inc()
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.recordDetached(d)
		}()
	}
	return nil
}

// Shutdown 停止接收新草稿，等待队列中和在途的事件全部写完
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	startLoop := !w.started
	w.started = true
	if startLoop {
		w.wg.Add(1)
		go w.loop()
	}
	w.mu.Unlock()

	w.logger.Info("正在停止事件工作器，等待队列清空...")
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("事件工作器已停止。")
		return nil
	case <-ctx.Done():
		w.logger.Warnf("事件工作器停止超时，剩余 %d 条草稿未写入", len(w.queue))
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()

	batch := make([]*model.Event, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case d, ok := <-w.queue:
			if !ok {
				w.flush(batch)
				return
			}
			metrics.EventQueueDepth.Set(float64(len(w.queue)))

			if event := w.build(d); event != nil {
				batch = append(batch, event)
			}
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = make([]*model.Event, 0, w.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = make([]*model.Event, 0, w.batchSize)
			}
		}
	}
}

// build 只有结构不合法的草稿会被直接丢弃；查库超时之类的临时错误退避后重试
func (w *Worker) build(d Draft) *model.Event {
	var err error
	for attempt := 1; attempt <= buildAttempts; attempt++ {
		var event *model.Event
		event, err = w.buildOnce(d)
		if err == nil {
			return event
		}

		var invalid *ValidationError
		if errors.As(err, &invalid) {
			w.logger.Warnf("丢弃不合法的 %s 事件 (page=%d): %v", d.Type, d.PageID, err)
			return nil
		}
		if attempt < buildAttempts {
			w.logger.Warnf("构建 %s 事件失败 (page=%d, 第 %d 次)，稍后重试: %v", d.Type, d.PageID, attempt, err)
			time.Sleep(time.Duration(attempt) * w.retryBackoff)
		}
	}
	w.logger.Errorf("构建 %s 事件重试 %d 次仍失败，放弃 (page=%d): %v", d.Type, buildAttempts, d.PageID, err)
	return nil
}

func (w *Worker) buildOnce(d Draft) (*model.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.recordTimeout)
	defer cancel()
	return w.recorder.Build(ctx, d)
}

// flush 整批写入失败时逐条重试，仍失败的记录日志后丢弃
func (w *Worker) flush(batch []*model.Event) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.recordTimeout)
	defer cancel()

	err := w.recorder.Append(ctx, batch...)
	if err == nil {
		w.logger.Debugf("已写入 %d 条事件", len(batch))
		return
	}
	w.logger.Warnf("批量写入 %d 条事件失败，逐条重试: %v", len(batch), err)

	for _, e := range batch {
		e.ID = 0
		ctx, cancel := context.WithTimeout(context.Background(), w.recordTimeout)
		if err := w.recorder.Append(ctx, e); err != nil {
			w.logger.Errorf("写入 %s 事件失败 (page=%d): %v", e.Type, e.PageID, err)
		}
		cancel()
	}
}

// recordDetached 队列已满时在独立协程里走同样的构建与写入流程
func (w *Worker) recordDetached(d Draft) {
	if event := w.build(d); event != nil {
		w.flush([]*model.Event{event})
	}
}
