package logs

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// maxReadPerPoll bounds how many bytes one poll may consume, so a burst
// of log output cannot stall the reconciliation loop.
const maxReadPerPoll = 1 << 20

// DefaultBackfillLines is how many historical lines are loaded when a
// tailer first attaches to an existing log file.
const DefaultBackfillLines = 50

// fileIdentity distinguishes files across rotation. A renamed-away and
// recreated log file keeps its path but changes inode.
type fileIdentity struct {
	dev uint64
	ino uint64
}

func (id fileIdentity) zero() bool {
	return id.dev == 0 && id.ino == 0
}

func identityOf(info os.FileInfo) fileIdentity {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return fileIdentity{dev: uint64(st.Dev), ino: uint64(st.Ino)}
	}
	return fileIdentity{}
}

// TailerConfig configures a Tailer.
type TailerConfig struct {
	// Buffer receives parsed records. Required.
	Buffer *RingBuffer

	// BackfillLines preloads the newest N lines when first attaching to
	// a file that already has content. Zero disables backfill.
	BackfillLines int

	// Logger for tailer state transitions.
	Logger *slog.Logger
}

// Tailer polls one log file for appended content, surviving rotation and
// truncation. It never emits a record for a line that is not yet
// terminated in the file, and its sequence numbers stay monotonic across
// rotations.
//
// Polling rather than inotify/kqueue keeps rotation handling uniform
// across platforms; latency is bounded by the caller's poll interval.
type Tailer struct {
	path       string
	identity   fileIdentity
	offset     int64
	generation int
	seq        uint64

	buffer   *RingBuffer
	parser   *Parser
	backfill int
	logger   *slog.Logger

	file *os.File

	// readErrActive suppresses repeat reporting of the same I/O failure;
	// the error is logged once per state transition, not every poll.
	readErrActive bool
}

// NewTailer creates a Tailer for the given path.
func NewTailer(path string, cfg TailerConfig) *Tailer {
	if cfg.Buffer == nil {
		cfg.Buffer = NewRingBuffer(DefaultCapacity)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tailer{
		path:     path,
		buffer:   cfg.Buffer,
		parser:   NewParser(),
		backfill: cfg.BackfillLines,
		logger:   cfg.Logger,
	}
}

// Poll reads newly appended complete lines, classifies them, and appends
// them to the ring buffer. It returns the number of records emitted.
//
// A missing file is not an error: the cursor is kept and the next poll
// retries, which covers rotation-in-progress. Read errors are returned to
// the caller for last-error annotation and retried on the next poll.
func (t *Tailer) Poll() (int, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Rotation may be mid-rename. Keep the cursor and retry.
			return 0, nil
		}
		return 0, t.readError("stat", err)
	}

	id := identityOf(info)
	size := info.Size()

	switch {
	case t.file == nil:
		if err := t.open(id, size); err != nil {
			return 0, t.readError("open", err)
		}
	case !id.zero() && id != t.identity:
		t.rotate("identity changed", id, size)
		if err := t.open(id, size); err != nil {
			return 0, t.readError("open", err)
		}
	case size < t.offset:
		t.rotate("file truncated", id, size)
		if err := t.open(id, size); err != nil {
			return 0, t.readError("open", err)
		}
	}

	if size <= t.offset {
		t.clearReadError()
		return 0, nil
	}

	toRead := size - t.offset
	if toRead > maxReadPerPoll {
		toRead = maxReadPerPoll
	}

	data := make([]byte, toRead)
	n, err := t.file.ReadAt(data, t.offset)
	if err != nil && n == 0 {
		return 0, t.readError("read", err)
	}
	data = data[:n]

	// Only complete lines are consumed; a trailing partial line stays in
	// the file and is re-read once its terminator arrives.
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		t.clearReadError()
		return 0, nil
	}

	emitted := t.emitLines(data[:end+1])
	t.offset += int64(end + 1)
	t.clearReadError()
	return emitted, nil
}

// emitLines splits complete-line content and appends one record per
// non-empty line.
func (t *Tailer) emitLines(data []byte) int {
	now := time.Now()
	emitted := 0
	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		line := TrimLine(string(raw))
		if line == "" {
			continue
		}
		rec := t.parser.Parse(line, now)
		t.seq++
		rec.Sequence = t.seq
		t.buffer.Append(rec)
		emitted++
	}
	return emitted
}

// open opens the file at offset 0 (or backfills on first attach).
func (t *Tailer) open(id fileIdentity, size int64) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}

	firstAttach := t.identity.zero() && t.generation == 0
	t.file = f
	t.identity = id
	t.offset = 0

	if firstAttach && t.backfill > 0 && size > 0 {
		t.backfillRecent(f)
		t.offset = size
	}
	return nil
}

// backfillRecent loads the newest backfill lines of an existing file so
// an attach shows recent history instead of starting blank.
func (t *Tailer) backfillRecent(f *os.File) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > t.backfill {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		t.logger.Debug("log backfill incomplete", "path", t.path, "error", err)
	}

	now := time.Now()
	for _, line := range lines {
		line = TrimLine(line)
		if line == "" {
			continue
		}
		rec := t.parser.Parse(line, now)
		t.seq++
		rec.Sequence = t.seq
		t.buffer.Append(rec)
	}
}

// rotate resets the cursor for a replaced or truncated file. The offset
// always resets to 0, never seeks negative, and the generation counter
// guards against stale reads from the closed handle. Sequence numbers
// are not reset.
func (t *Tailer) rotate(reason string, id fileIdentity, size int64) {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	t.generation++
	t.offset = 0
	t.parser.Reset()
	t.logger.Debug("log rotation detected",
		"path", t.path,
		"reason", reason,
		"generation", t.generation,
		"newSize", size)
	t.identity = id
}

// SetPath retargets the tailer at a different file, e.g. after the
// locator re-resolves. Sequence numbers continue; the cursor resets.
func (t *Tailer) SetPath(path string) {
	if path == t.path {
		return
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	t.path = path
	t.identity = fileIdentity{}
	t.offset = 0
	t.generation++
	t.parser.Reset()
}

// Path returns the currently tailed file path.
func (t *Tailer) Path() string {
	return t.path
}

// Generation returns the rotation generation counter.
func (t *Tailer) Generation() int {
	return t.generation
}

// Offset returns the current byte offset into the tailed file.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// Sequence returns the last assigned record sequence number.
func (t *Tailer) Sequence() uint64 {
	return t.seq
}

// Close releases the underlying file handle.
func (t *Tailer) Close() error {
	if t.file != nil {
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

func (t *Tailer) readError(op string, err error) error {
	if !t.readErrActive {
		t.readErrActive = true
		t.logger.Warn("log read failing", "path", t.path, "op", op, "error", err)
	}
	return fmt.Errorf("%s %s: %w", op, t.path, err)
}

func (t *Tailer) clearReadError() {
	if t.readErrActive {
		t.readErrActive = false
		t.logger.Debug("log read recovered", "path", t.path)
	}
}
