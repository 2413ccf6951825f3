//go:build unit || e2e

package fake

import (
	"context"
	"sync"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// Catalog serves batches and participants from memory and doubles as the
// center authorizer.
type Catalog struct {
	mu           sync.RWMutex
	batches      map[uuid.UUID]batch.Batch
	participants map[uuid.UUID]batch.Participant
	centerStaff  map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{
		batches:      make(map[uuid.UUID]batch.Batch),
		participants: make(map[uuid.UUID]batch.Participant),
		centerStaff:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (c *Catalog) AddBatch(b *batch.Batch) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches[b.ID] = *b
	return c
}

func (c *Catalog) AddParticipants(ps ...batch.Participant) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range ps {
		c.participants[p.ID] = p
	}
	return c
}

func (c *Catalog) GrantCenter(userID, centerID uuid.UUID) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.centerStaff[userID] == nil {
		c.centerStaff[userID] = make(map[uuid.UUID]struct{})
	}
	c.centerStaff[userID][centerID] = struct{}{}
	return c
}

func (c *Catalog) GetBatch(_ context.Context, batchID uuid.UUID) (*batch.Batch, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.batches[batchID]
	if !ok {
		return nil, infra.NewRepositoryError(infra.KindNotFound, "batch not found")
	}
	return &b, nil
}

func (c *Catalog) GetParticipants(_ context.Context, ids []uuid.UUID) ([]batch.Participant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []batch.Participant
	for _, id := range ids {
		if p, ok := c.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) IsAuthorizedForCenter(_ context.Context, actor user.Actor, centerID uuid.UUID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.centerStaff[actor.UserID][centerID]
	return ok, nil
}

var (
	_ shared.Catalog          = (*Catalog)(nil)
	_ shared.CenterAuthorizer = (*Catalog)(nil)
)
