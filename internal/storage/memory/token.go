package memory

import (
	"context"
	"time"

	"github.com/mkravets/famhub/internal/storage"
)

type tokenStore struct {
	s *Store
}

func (t *tokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	unlock := t.s.lock()
	defer unlock()
	t.s.st.refresh[tokenHash] = refreshRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (t *tokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	unlock := t.s.lock()
	defer unlock()
	rec, ok := t.s.st.refresh[tokenHash]
	if !ok || rec.revoked || nowUTC().After(rec.expiresAt) {
		return 0, storage.ErrNotFound
	}
	return rec.userID, nil
}

func (t *tokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	unlock := t.s.lock()
	defer unlock()
	if rec, ok := t.s.st.refresh[tokenHash]; ok {
		rec.revoked = true
		t.s.st.refresh[tokenHash] = rec
	}
	return nil
}

func (t *tokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	unlock := t.s.lock()
	defer unlock()
	for hash, rec := range t.s.st.refresh {
		if rec.userID == userID {
			rec.revoked = true
			t.s.st.refresh[hash] = rec
		}
	}
	return nil
}
