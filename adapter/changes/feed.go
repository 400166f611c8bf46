package changes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// maxLineSize bounds a single feed line. Events carrying full documents can
// be large when the feed was opened with include_docs.
const maxLineSize = 16 << 20

// feed implements [domain.Feed] over a continuous response stream. A reader
// goroutine parses lines and hands events over an unbuffered channel, so it
// produces the next event only when the consumer asks for it.
type feed struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	body    io.ReadCloser
	decoder domain.Decoder

	events  chan domain.ChangesEvent
	current domain.ChangesEvent
	started bool

	closeOnce sync.Once

	// written by the reader goroutine before it closes events; the close
	// is the happens-before edge for readers
	lastSeq string
	pending int64
	err     error
}

func newFeed(ctx context.Context, body io.ReadCloser, dec domain.Decoder) domain.Feed {
	ctx, cancel := context.WithCancelCause(ctx)
	f := &feed{
		ctx:     ctx,
		cancel:  cancel,
		body:    body,
		decoder: dec,
		events:  make(chan domain.ChangesEvent),
	}
	go f.read()
	return f
}

// terminalLine is the final line of a feed.
type terminalLine struct {
	LastSeq string `mango:"last_seq"`
	Pending int64  `mango:"pending"`
}

func (f *feed) read() {
	defer close(f.events)
	defer func() { _ = f.body.Close() }()

	scanner := bufio.NewScanner(contextio.NewReader(f.ctx, f.body))
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			// server heartbeat
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			f.err = domain.ErrDecode{Source: string(line), Target: &domain.ChangesEvent{}}
			return
		}

		if _, ok := raw["last_seq"]; ok {
			var terminal terminalLine
			if err := f.decoder.Decode(raw, &terminal); err != nil {
				f.err = err
				return
			}
			f.lastSeq = terminal.LastSeq
			f.pending = terminal.Pending
			return
		}

		var event domain.ChangesEvent
		if err := f.decoder.Decode(raw, &event); err != nil {
			f.err = err
			return
		}

		select {
		case f.events <- event:
		case <-f.ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && f.ctx.Err() == nil {
		f.err = domain.ErrTransport{Err: err}
	}
}

// Next implements [domain.Feed].
func (f *feed) Next() bool {
	event, ok := <-f.events
	if !ok || f.ctx.Err() != nil {
		return false
	}
	f.current = event
	f.started = true
	return true
}

// Event implements [domain.Feed].
func (f *feed) Event() domain.ChangesEvent {
	return f.current
}

// Scan implements [domain.Feed]. A *ChangesEvent target receives the whole
// event; any other target receives the embedded document, which requires
// the feed to have been opened with include_docs.
func (f *feed) Scan(ctx context.Context, target any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if context.Cause(f.ctx) == domain.ErrFeedClosed {
		return domain.ErrFeedClosed
	}
	if !f.started {
		return domain.ErrScanBeforeNext
	}
	if event, ok := target.(*domain.ChangesEvent); ok {
		*event = f.current
		return nil
	}
	return f.decoder.Decode(f.current.Doc, target)
}

// Err implements [domain.Feed]. Cancellation and EOF are clean
// terminations and report no error.
func (f *feed) Err() error {
	return f.err
}

// Close implements [domain.Feed]. It aborts the underlying read; no events
// are handed over after it returns.
func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		f.cancel(domain.ErrFeedClosed)
		_ = f.body.Close()
	})
	return nil
}

// LastSeq implements [domain.Feed].
func (f *feed) LastSeq() string {
	return f.lastSeq
}

// Pending implements [domain.Feed].
func (f *feed) Pending() int64 {
	return f.pending
}
