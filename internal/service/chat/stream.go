package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/zhangyuer/elenchus/backend/internal/model/chat"
)

// TokenStream is a lazy, finite, non-restartable sequence of text fragments
// from one model call. Recv returns io.EOF after the final fragment; Close
// releases the underlying transport and may be called more than once.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Streamer opens one cancellable model call for a conversation turn. history
// is the transcript before the turn's user message; content is the new user
// input. Implementations hold no conversation state.
type Streamer interface {
	StreamReply(ctx context.Context, history []chat.Message, content string) (TokenStream, error)
}

// ErrStreamIdle is returned when the model produces no fragment within the
// configured idle window.
var ErrStreamIdle = errors.New("model stream idle timeout")

// pumpStream drains a TokenStream, concatenating fragments in arrival order.
// After each fragment it reports the full accumulated text through onProgress
// so the caller can do plain prefix replacement. Returns the final text, or
// the first transport/context error. idleTimeout of zero disables the watch.
func pumpStream(ctx context.Context, stream TokenStream, idleTimeout time.Duration, onProgress func(accumulated string)) (string, error) {
	defer stream.Close()

	type fragment struct {
		text string
		err  error
	}
	frags := make(chan fragment)
	go func() {
		for {
			text, err := stream.Recv()
			select {
			case frags <- fragment{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var idle <-chan time.Time
	var timer *time.Timer
	if idleTimeout > 0 {
		timer = time.NewTimer(idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	var acc strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-idle:
			return "", ErrStreamIdle
		case frag := <-frags:
			if errors.Is(frag.err, io.EOF) {
				return acc.String(), nil
			}
			if frag.err != nil {
				return "", frag.err
			}
			if frag.text == "" {
				continue
			}
			acc.WriteString(frag.text)
			if timer != nil {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(idleTimeout)
			}
			if onProgress != nil {
				onProgress(acc.String())
			}
		}
	}
}
