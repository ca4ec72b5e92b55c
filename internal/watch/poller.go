package watch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Snapshot is what the admin views render from
type Snapshot struct {
	Orders    []models.Order   `json:"orders"`
	Products  []models.Product `json:"products"`
	Dashboard models.Dashboard `json:"dashboard"`
	At        time.Time        `json:"at"`
}

// Poller re-reads the shared admin state and fans out a snapshot whenever it
// changed since the previous read
type Poller struct {
	store    *store.Store
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	subscribers map[int]chan Snapshot
	nextID      int
	fingerprint [sha256.Size]byte
	latest      *Snapshot
}

// NewPoller creates a new poller
func NewPoller(s *store.Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		store:       s,
		interval:    interval,
		logger:      util.GetLogger(),
		subscribers: make(map[int]chan Snapshot),
	}
}

// Subscribe registers a receiver. The latest snapshot, if any, is delivered
// first. Call cancel to unsubscribe; the channel is closed.
func (p *Poller) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++

	ch := make(chan Snapshot, 1)
	if p.latest != nil {
		ch <- *p.latest
	}
	p.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subscribers[id]; ok {
				delete(p.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Latest returns the most recent snapshot, reading it if none exists yet
func (p *Poller) Latest(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	latest := p.latest
	p.mu.Unlock()
	if latest != nil {
		return *latest, nil
	}
	if err := p.Refresh(ctx); err != nil {
		return Snapshot{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.latest, nil
}

// Refresh reads the shared state now and publishes it if it changed
func (p *Poller) Refresh(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Poller.Refresh")
	defer span.End()

	orders := []models.Order{}
	if res := p.store.Load(ctx, store.SharedKey(store.KeyAdminOrders), &orders); res.Status == store.LoadUnavailable {
		util.RecordError(span, res.Err)
		return fmt.Errorf("failed to read admin orders: %w", res.Err)
	}
	products := []models.Product{}
	if res := p.store.Load(ctx, store.SharedKey(store.KeyAdminProducts), &products); res.Status == store.LoadUnavailable {
		util.RecordError(span, res.Err)
		return fmt.Errorf("failed to read admin products: %w", res.Err)
	}

	raw, err := json.Marshal(struct {
		Orders   []models.Order   `json:"orders"`
		Products []models.Product `json:"products"`
	}{orders, products})
	if err != nil {
		return fmt.Errorf("failed to fingerprint snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest != nil && sum == p.fingerprint {
		return nil
	}

	snap := Snapshot{
		Orders:    orders,
		Products:  products,
		Dashboard: models.BuildDashboard(orders, products),
		At:        time.Now(),
	}
	p.fingerprint = sum
	p.latest = &snap

	for id, ch := range p.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale pending snapshot and replace it
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
				p.logger.Debug("Subscriber lagging, snapshot dropped", zap.Int("subscriber", id))
			}
		}
	}
	util.AdminSnapshotsPublished.Inc()

	return nil
}

// Run polls until ctx is cancelled
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Admin poller started", zap.Duration("interval", p.interval))

	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("Admin refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Admin poller stopped")
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("Admin refresh failed", zap.Error(err))
			}
		}
	}
}
