package objindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
)

// LockOptions configures lease acquisition.
type LockOptions struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration
}

func (o *LockOptions) normalize() {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}

	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = o.TTL / 2
	}

	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}

	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
}

// lockFile is the content of a lock file.
type lockFile struct {
	Token      string    `json:"token"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Lease is a held directory lock. Context is cancelled with ErrLockLost
// when the lease can no longer be renewed.
type Lease struct {
	Path  string
	Token string

	Context context.Context

	ttl    time.Duration
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// WithLease runs fn while holding the lock at path.
func WithLease(ctx context.Context, path string, opts LockOptions, fn func(ctx context.Context) error) error {
	lease, err := AcquireLock(ctx, path, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = lease.Release()
	}()

	return fn(lease.Context)
}

// AcquireLock takes the lock file at path. A lock held by someone else is
// ErrLockBusy unless opts.Wait is set, in which case acquisition retries
// until ctx is done. Expired locks are taken over.
func AcquireLock(ctx context.Context, path string, opts LockOptions) (*Lease, error) {
	opts.normalize()

	holder, _ := os.Hostname()
	holder += ":" + strconv.Itoa(os.Getpid())

	token := uuid.NewString()

	for {
		ok, err := tryAcquire(path, token, holder, opts.TTL)
		if err != nil {
			return nil, err
		}

		if ok {
			break
		}

		if !opts.Wait {
			return nil, models.ErrLockBusy
		}

		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Path:    path,
		Token:   token,
		Context: leaseCtx,
		ttl:     opts.TTL,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}

	go l.renewLoop(opts.RenewEvery)

	return l, nil
}

// Release stops renewal and removes the lock file if this lease still owns it.
func (l *Lease) Release() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})

	current, err := readLock(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	if current.Token != l.Token {
		return nil
	}

	if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock %s: %w", l.Path, err)
	}

	return nil
}

func (l *Lease) renewLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renewOnce() error {
	current, err := readLock(l.Path)
	if err != nil || current.Token != l.Token {
		return models.ErrLockLost
	}

	current.ExpiresAt = time.Now().Add(l.ttl)

	data, err := json.Marshal(current)
	if err != nil {
		return err
	}

	if err := jsonio.WriteFile(l.Path, data); err != nil {
		return fmt.Errorf("%w: %v", models.ErrLockLost, err)
	}

	return nil
}

func tryAcquire(path, token, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()

	data, err := json.Marshal(lockFile{
		Token:      token,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	})
	if err != nil {
		return false, err
	}

	created, err := createExclusive(path, data)
	if err != nil || created {
		return created, err
	}

	existing, err := readLock(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Released between our create and read.
		return false, nil
	case errors.Is(err, models.ErrMalformedInput):
		// A holder that died between create and write leaves an empty or
		// partial file. It expires ttl after its last modification.
		info, statErr := os.Stat(path)
		if statErr != nil {
			return false, nil //nolint:nilerr // retried by the caller
		}

		existing = lockFile{ExpiresAt: info.ModTime().Add(ttl)}
	case err != nil:
		return false, err
	}

	if now.Before(existing.ExpiresAt) {
		return false, nil
	}

	if err := takeOver(path, existing.Token); err != nil {
		return false, nil //nolint:nilerr // someone else won the takeover
	}

	return createExclusive(path, data)
}

func createExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // lock path is derived from the index dir
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf("creating lock %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()       //nolint:errcheck,gosec // already failing
		os.Remove(path) //nolint:errcheck,gosec // best effort
		return false, fmt.Errorf("writing lock %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing lock %s: %w", path, err)
	}

	return true, nil
}

// takeOver moves a stale lock aside. If the moved file turns out not to be
// the stale lock it is put back. An unreadable lock has an empty token.
func takeOver(path, staleToken string) error {
	aside := path + ".stale." + uuid.NewString()
	if err := os.Rename(path, aside); err != nil {
		return err
	}

	moved, err := readLock(aside)
	if err == nil && moved.Token != staleToken {
		if linkErr := os.Link(aside, path); linkErr == nil {
			os.Remove(aside) //nolint:errcheck,gosec // best effort
		}

		return models.ErrLockBusy
	}

	os.Remove(aside) //nolint:errcheck,gosec // best effort

	return nil
}

func readLock(path string) (lockFile, error) {
	var lf lockFile

	data, err := os.ReadFile(path) //nolint:gosec // lock path is derived from the index dir
	if err != nil {
		return lf, err
	}

	if err := json.Unmarshal(data, &lf); err != nil {
		return lf, fmt.Errorf("%w: lock file %s: %v", models.ErrMalformedInput, path, err)
	}

	return lf, nil
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
