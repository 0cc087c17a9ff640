package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// bagSchemaVersion pins the on-disk layout to the "ROS 2 bag v9"
// metadata.yaml/SQLite convention, so external bag tooling built
// against that format can inspect a Tide recording.
const bagSchemaVersion = 9

// rawSerializationFormat names the opaque raw-byte schema every topic
// is declared under. Tide's bag never interprets message bytes, unlike
// ROS 2's CDR-typed topics.
const rawSerializationFormat = "tide_raw"

type bagEntry struct {
	topic   string
	payload []byte
	tsNano  int64
}

// unboundedQueue is a FIFO with no fixed capacity, guarded by a mutex
// and condition variable. A fixed-capacity buffered channel would
// force a choice between blocking the publisher and silently dropping
// under burst load; the recorder must never block a node's Put and
// must not drop while the writer is healthy.
type unboundedQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []bagEntry
	closed bool
}

func newUnboundedQueue() *unboundedQueue {
	q := &unboundedQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *unboundedQueue) push(e bagEntry) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *unboundedQueue) closeQueue() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until an item is available, returning ok=false once the
// queue has been closed and fully drained.
func (q *unboundedQueue) pop() (bagEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return bagEntry{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// BagWriter is the concrete Recorder: a directory-backed bag (a single
// SQLite data file plus metadata.yaml), written by one background
// goroutine draining an unboundedQueue.
type BagWriter struct {
	dir    string
	dbPath string
	logger *slog.Logger
	bagID  string

	db    *sql.DB
	queue *unboundedQueue
	done  chan struct{}

	mu        sync.Mutex
	topicIDs  map[string]int64
	counts    map[string]int64
	haveStart bool
	startNano int64
	endNano   int64

	failed    atomic.Bool
	closeOnce sync.Once
}

// NewBagWriter creates dir, clearing any pre-existing contents, and
// starts its background writer goroutine.
func NewBagWriter(dir string, logger *slog.Logger) (*BagWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, &RecorderError{Op: "new_bag", Err: fmt.Errorf("clear bag dir %s: %w", dir, err)}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &RecorderError{Op: "new_bag", Err: fmt.Errorf("create bag dir %s: %w", dir, err)}
	}

	base := filepath.Base(filepath.Clean(dir))
	if base == "" || base == "." || base == "/" {
		base = "tide_bag"
	}
	dbPath := filepath.Join(dir, base+"_0.db3")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &RecorderError{Op: "new_bag", Err: fmt.Errorf("open %s: %w", dbPath, err)}
	}

	if _, err := db.Exec(`
		CREATE TABLE topics(
			id                   INTEGER PRIMARY KEY,
			name                 TEXT NOT NULL UNIQUE,
			type                 TEXT NOT NULL,
			serialization_format TEXT NOT NULL
		);
		CREATE TABLE messages(
			id        INTEGER PRIMARY KEY,
			topic_id  INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			data      BLOB NOT NULL
		);
		CREATE INDEX timestamp_idx ON messages(timestamp);
	`); err != nil {
		db.Close()
		return nil, &RecorderError{Op: "new_bag", Err: fmt.Errorf("create schema: %w", err)}
	}

	bagID := dbPath
	if id, err := uuid.NewV7(); err == nil {
		bagID = id.String()
	}

	w := &BagWriter{
		dir:      dir,
		dbPath:   dbPath,
		logger:   logger,
		bagID:    bagID,
		db:       db,
		queue:    newUnboundedQueue(),
		done:     make(chan struct{}),
		topicIDs: make(map[string]int64),
		counts:   make(map[string]int64),
	}
	go w.run()
	return w, nil
}

// Record enqueues (topic, payload, tsNano) for the background writer.
// Zero-length payloads are dropped, and once the writer
// has failed, every subsequent Record is a silent no-op — recording is
// best-effort and must never block or fail a node's Put.
func (w *BagWriter) Record(topic string, payload []byte, tsNano int64) {
	if len(payload) == 0 || w.failed.Load() {
		return
	}
	w.queue.push(bagEntry{topic: topic, payload: payload, tsNano: tsNano})
}

// Close enqueues a close signal, waits for the writer to drain, writes
// metadata.yaml, and closes the database. Idempotent.
func (w *BagWriter) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		w.queue.closeQueue()
		<-w.done
		if err := w.writeMetadata(); err != nil {
			w.logger.Warn("recorder: failed writing bag metadata.yaml", "error", err)
		}
		closeErr = w.db.Close()
	})
	return closeErr
}

// run drains the queue until closed, writing each entry to SQLite. A
// write failure deactivates further writing, but the loop keeps
// draining so Close never blocks.
func (w *BagWriter) run() {
	defer close(w.done)
	for {
		e, ok := w.queue.pop()
		if !ok {
			return
		}
		if w.failed.Load() {
			continue
		}
		if err := w.writeEntry(e); err != nil {
			w.logger.Error("recorder: bag writer failed, recording deactivated", "error", err)
			w.failed.Store(true)
		}
	}
}

func (w *BagWriter) writeEntry(e bagEntry) error {
	topicID, err := w.topicID(e.topic)
	if err != nil {
		return err
	}

	if _, err := w.db.Exec(
		`INSERT INTO messages(topic_id, timestamp, data) VALUES (?, ?, ?)`,
		topicID, e.tsNano, e.payload,
	); err != nil {
		return fmt.Errorf("insert message for topic %s: %w", e.topic, err)
	}

	w.mu.Lock()
	w.counts[e.topic]++
	if !w.haveStart {
		w.startNano = e.tsNano
		w.haveStart = true
	}
	if e.tsNano > w.endNano {
		w.endNano = e.tsNano
	}
	w.mu.Unlock()
	return nil
}

// topicID returns the cached topic row id for topic, lazily declaring
// the row (and its opaque raw-byte schema) on first appearance.
func (w *BagWriter) topicID(topic string) (int64, error) {
	w.mu.Lock()
	id, ok := w.topicIDs[topic]
	w.mu.Unlock()
	if ok {
		return id, nil
	}

	res, err := w.db.Exec(
		`INSERT INTO topics(name, type, serialization_format) VALUES (?, ?, ?)`,
		topic, "bytes", rawSerializationFormat,
	)
	if err != nil {
		return 0, fmt.Errorf("declare topic %s: %w", topic, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("declare topic %s: %w", topic, err)
	}

	w.mu.Lock()
	w.topicIDs[topic] = id
	w.mu.Unlock()
	return id, nil
}
