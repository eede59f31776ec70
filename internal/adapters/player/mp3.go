// Package player streams MP3 audio over HTTP. Decoding runs on its own
// goroutine per stream; events are delivered through the dispatch loop.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

// bytesPerSample is the decoder's fixed output format: 16-bit stereo.
const bytesPerSample = 4

// MP3Player fetches a stream URL and decodes it at playback rate.
type MP3Player struct {
	httpClient *http.Client
	exec       func(func())

	mu      sync.Mutex
	events  ports.PlayerEvents
	cancel  context.CancelFunc
	open    bool
	playing bool
	paused  bool
}

var _ ports.Player = (*MP3Player)(nil)

// New constructs the player. exec must serialize event callbacks onto the
// dispatch loop.
func New(httpClient *http.Client, exec func(func())) *MP3Player {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if exec == nil {
		exec = func(fn func()) { fn() }
	}
	return &MP3Player{httpClient: httpClient, exec: exec}
}

// Subscribe registers the event handlers.
func (p *MP3Player) Subscribe(ev ports.PlayerEvents) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = ev
}

// IsOpen reports whether a stream is currently open.
func (p *MP3Player) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// IsPlaying reports whether a stream is open and not paused.
func (p *MP3Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Open stops any current stream and starts fetching item. Fetch and decode
// problems after Open returns are reported through OnError.
func (p *MP3Player) Open(item ports.MediaItem) error {
	if item.URL == "" {
		return errors.New("player: no media url")
	}

	p.mu.Lock()
	p.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.paused = false
	p.mu.Unlock()

	go p.stream(ctx, item)
	return nil
}

// Stop cancels the current stream, if any.
func (p *MP3Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *MP3Player) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.open {
		p.open = false
		p.playing = false
		p.emit(func(ev ports.PlayerEvents) {
			if ev.OnOpenChanged != nil {
				ev.OnOpenChanged(false)
			}
		})
	}
}

// TogglePause flips the pause state of the current stream.
func (p *MP3Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.paused = !p.paused
	p.playing = !p.paused
	playing := p.playing
	p.emit(func(ev ports.PlayerEvents) {
		if ev.OnPauseChanged != nil {
			ev.OnPauseChanged(playing)
		}
	})
}

func (p *MP3Player) stream(ctx context.Context, item ports.MediaItem) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		p.fail(ctx, fmt.Errorf("player: build request: %w", err))
		return
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.fail(ctx, fmt.Errorf("player: fetch stream: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.fail(ctx, fmt.Errorf("player: unexpected status %d", resp.StatusCode))
		return
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		p.fail(ctx, fmt.Errorf("player: decode stream: %w", err))
		return
	}

	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.open = true
	p.playing = true
	p.emit(func(ev ports.PlayerEvents) {
		if ev.OnOpenChanged != nil {
			ev.OnOpenChanged(true)
		}
	})
	p.mu.Unlock()

	// pace reads so the stream plays out in real time
	chunk := make([]byte, decoder.SampleRate()*bytesPerSample/10)
	interval := 100 * time.Millisecond

	for {
		if ctx.Err() != nil {
			return
		}
		if p.isPaused() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
			continue
		}

		_, err := io.ReadFull(decoder, chunk)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			p.finish(ctx)
			return
		}
		if err != nil {
			p.fail(ctx, fmt.Errorf("player: read stream: %w", err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (p *MP3Player) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *MP3Player) finish(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	p.open = false
	p.playing = false
	p.cancel = nil
	p.emit(func(ev ports.PlayerEvents) {
		if ev.OnEndOfMedia != nil {
			ev.OnEndOfMedia()
		}
	})
}

func (p *MP3Player) fail(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	log.Printf("WARN player: %v", err)
	p.open = false
	p.playing = false
	p.cancel = nil
	p.emit(func(ev ports.PlayerEvents) {
		if ev.OnError != nil {
			ev.OnError()
		}
	})
}

// emit dispatches one event callback. Caller holds the lock; the callback
// itself runs later on the dispatch loop.
func (p *MP3Player) emit(fire func(ports.PlayerEvents)) {
	ev := p.events
	p.exec(func() { fire(ev) })
}
