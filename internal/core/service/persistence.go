package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rl1809/cartstore/internal/core/domain"
)

// loadCaps reads the cap record. Unreadable records yield no caps.
func (s *CartStore) loadCaps(ctx context.Context) domain.Caps {
	var caps domain.Caps
	if !s.readRecord(ctx, s.capsKey, &caps) || caps == nil {
		return domain.Caps{}
	}
	for k, v := range caps {
		if v < 0 {
			delete(caps, k)
		}
	}
	return caps
}

// loadLines reads the cart record and repairs it against caps: lines with an
// invalid key or a quantity below 1 are dropped, duplicate keys are merged and
// quantities are clamped to domain.MaxLineQuantity and to the caps. The
// repaired cart is not written back.
func (s *CartStore) loadLines(ctx context.Context, caps domain.Caps) domain.Snapshot {
	var stored []domain.Line
	if !s.readRecord(ctx, s.cartKey, &stored) {
		return domain.Snapshot{}
	}

	lines := make(domain.Snapshot, 0, len(stored))
	repaired := 0
	for _, l := range stored {
		if l.Key().Validate() != nil || l.Quantity < 1 {
			repaired++
			continue
		}
		if idx := lines.Find(l.Key()); idx >= 0 {
			lines[idx].Quantity = domain.AddQuantity(lines[idx].Quantity, l.Quantity)
			repaired++
			continue
		}
		lines = append(lines, l)
	}

	kept := lines[:0]
	for _, l := range lines {
		qty := caps.Clamp(l.Key(), domain.LimitQuantity(l.Quantity))
		if qty < l.Quantity {
			s.metrics.IncClamp("load")
		}
		if qty < 1 {
			continue
		}
		l.Quantity = qty
		kept = append(kept, l)
	}

	if repaired > 0 {
		s.log.Warn(ctx, "repaired stored cart", nil, "key", s.cartKey, "dropped_or_merged", repaired)
	}
	return kept
}

func (s *CartStore) readRecord(ctx context.Context, key string, dest any) bool {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.metrics.IncStorageFailure("load")
		s.log.Warn(ctx, "cart storage unavailable, starting empty", err, "key", key)
		return false
	}
	if !found || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.metrics.IncStorageFailure("load")
		s.log.Warn(ctx, "cart record corrupt, starting empty", err, "key", key)
		return false
	}
	return true
}

func (s *CartStore) writeLines(ctx context.Context, op string, lines domain.Snapshot) error {
	if lines == nil {
		lines = domain.Snapshot{}
	}
	return s.writeRecord(ctx, op, s.cartKey, lines)
}

func (s *CartStore) writeCaps(ctx context.Context, op string, caps domain.Caps) error {
	return s.writeRecord(ctx, op, s.capsKey, caps)
}

func (s *CartStore) writeRecord(ctx context.Context, op, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		s.metrics.IncStorageFailure(op)
		s.log.Error(ctx, "cart storage write failed", err, "key", key, "op", op)
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
