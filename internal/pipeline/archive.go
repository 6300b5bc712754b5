package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// Archiver submits cited URLs to an archival service in the background.
// The queue is decoupled from the verdict path: Enqueue never blocks, and a
// full queue drops submissions instead of slowing the pipeline down.
type Archiver struct {
	endpoint string
	client   *http.Client
	queue    chan string
	wg       sync.WaitGroup
	once     sync.Once
	verbose  bool
}

// NewArchiver starts the background worker. Returns nil when no endpoint is
// configured; a nil Archiver is safe to Enqueue on and Close.
func NewArchiver(endpoint string, verbose bool) *Archiver {
	if endpoint == "" {
		return nil
	}

	a := &Archiver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		queue:    make(chan string, 64),
		verbose:  verbose,
	}

	a.wg.Add(1)
	go a.run()
	return a
}

// Enqueue submits a URL for archival. Never blocks; drops when the queue is full.
func (a *Archiver) Enqueue(url string) {
	if a == nil || url == "" {
		return
	}
	select {
	case a.queue <- url:
	default:
	}
}

// Close stops accepting URLs and waits for in-flight submissions
func (a *Archiver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.queue) })
	a.wg.Wait()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for url := range a.queue {
		a.submit(url)
	}
}

func (a *Archiver) submit(url string) {
	resp, err := a.client.Get(a.endpoint + url)
	if err != nil {
		if a.verbose {
			fmt.Fprintf(os.Stderr, "Warning: archive submission failed for %s: %v\n", url, err)
		}
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
}
