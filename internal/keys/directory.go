// Package keys implements the Key Directory of §4.B: a polled,
// copy-on-write snapshot of the Ed25519 verification keys the Token
// Verifier trusts, keyed by "kid".
package keys

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/seatrace-io/leg/internal/co"
	"github.com/seatrace-io/leg/internal/obslog"
)

func decodeStdBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

var logger = obslog.WithContext("pkg", "keys")

// Status is a key's lifecycle state (§3 Key Directory Entry).
type Status string

const (
	StatusActive     Status = "active"
	StatusPrevious   Status = "previous"
	StatusDeprecated Status = "deprecated"
)

// Entry is one Key Directory Entry (§3).
type Entry struct {
	Kid       string
	PublicKey ed25519.PublicKey
	Status    Status
}

// Source loads the full key set from its backing system (file, KMS,
// remote registry). Implementations must be safe for concurrent use.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Directory is a read-mostly, copy-on-write snapshot of Source, with a
// background refresh loop. Readers never block on a refresh in flight.
type Directory struct {
	source Source

	mu       chan struct{} // 1-buffered mutex: cheap, avoids sync.Mutex import churn
	snapshot *snapshot

	goes   co.Goes
	stopCh chan struct{}
}

type snapshot struct {
	byKid    map[string]Entry
	loadedAt time.Time
}

// New constructs a Directory and performs a synchronous initial load.
func New(ctx context.Context, source Source) (*Directory, error) {
	d := &Directory{
		source: source,
		mu:     make(chan struct{}, 1),
	}
	d.mu <- struct{}{}
	if err := d.reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Start launches the background refresh loop at the given interval.
func (d *Directory) Start(interval time.Duration) {
	d.stopCh = make(chan struct{})
	d.goes.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := d.reload(context.Background()); err != nil {
					logger.Warn("key directory refresh failed", "err", err)
				}
			case <-d.stopCh:
				return
			}
		}
	})
}

// Stop halts the background refresh loop and waits for it to exit.
func (d *Directory) Stop() {
	if d.stopCh != nil {
		close(d.stopCh)
	}
	d.goes.Wait()
}

func (d *Directory) reload(ctx context.Context) error {
	entries, err := d.source.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load key directory")
	}
	if len(entries) == 0 && d.snapshot != nil {
		return errors.New("empty key directory load, keeping previous snapshot")
	}
	next := &snapshot{byKid: make(map[string]Entry, len(entries)), loadedAt: time.Now()}
	for _, e := range entries {
		next.byKid[e.Kid] = e
	}

	<-d.mu
	d.snapshot = next
	d.mu <- struct{}{}
	return nil
}

// Lookup returns the entry for kid, if present. Deprecated entries are
// still returned: callers decide whether deprecated keys may still
// verify (§9 Open Questions treats this as policy, not directory
// plumbing).
func (d *Directory) Lookup(kid string) (Entry, bool) {
	<-d.mu
	snap := d.snapshot
	d.mu <- struct{}{}

	e, ok := snap.byKid[kid]
	return e, ok
}

// Default returns the entry configured as the fallback key for tokens
// whose header omits "kid".
func (d *Directory) Default(defaultKid string) (Entry, bool) {
	if defaultKid == "" {
		return Entry{}, false
	}
	return d.Lookup(defaultKid)
}

// LastReloaded reports when the directory's snapshot was last loaded,
// satisfying health.KeyDirectoryProbe.
func (d *Directory) LastReloaded() time.Time {
	<-d.mu
	snap := d.snapshot
	d.mu <- struct{}{}
	return snap.loadedAt
}

// Reload forces a synchronous refresh, used when the verifier meets an
// unknown kid and wants one opportunistic reload before failing (§4.B).
func (d *Directory) Reload(ctx context.Context) error {
	return d.reload(ctx)
}

// fileEntry is the on-disk JSON shape for FileSource.
type fileEntry struct {
	Kid       string `json:"kid"`
	PublicKey string `json:"public_key"` // base64 standard encoding
	Status    string `json:"status"`
}

// FileSource loads key entries from a JSON file on disk, re-read on
// every Load call (the Directory's ticker provides the polling cadence).
type FileSource struct {
	Path string
}

func (f *FileSource) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read key directory file")
	}
	var raw []fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse key directory file")
	}
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		pub, err := decodeStdBase64(r.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "decode public key for kid %q", r.Kid)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, errors.Errorf("kid %q: public key has wrong length %d", r.Kid, len(pub))
		}
		entries = append(entries, Entry{
			Kid:       r.Kid,
			PublicKey: ed25519.PublicKey(pub),
			Status:    Status(r.Status),
		})
	}
	return entries, nil
}
