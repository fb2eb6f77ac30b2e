package s3fm

import (
	"context"
	"fmt"
	"sync"
)

// memCatalog is an in-memory Catalog used by reconciler and resolver tests.
type memCatalog struct {
	mu      sync.Mutex
	nextID  int64
	records []ObjectRecord

	listErr error
}

func newMemCatalog(records ...ObjectRecord) *memCatalog {
	c := &memCatalog{}
	for _, rec := range records {
		_, _ = c.Insert(context.Background(), rec)
	}
	return c
}

func (c *memCatalog) Insert(_ context.Context, rec ObjectRecord) (ObjectRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.records {
		if existing.StorageKey == rec.StorageKey {
			return ObjectRecord{}, fmt.Errorf("duplicate storage key %q", rec.StorageKey)
		}
	}

	c.nextID++
	rec.ID = c.nextID
	c.records = append(c.records, rec)
	return rec, nil
}

func (c *memCatalog) GetByID(_ context.Context, id int64) (ObjectRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return ObjectRecord{}, ErrNotFound
}

func (c *memCatalog) GetByToken(_ context.Context, token string) (ObjectRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.records {
		if rec.AccessToken == token {
			return rec, nil
		}
	}
	return ObjectRecord{}, ErrNotFound
}

func (c *memCatalog) ListAll(_ context.Context) ([]ObjectRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ObjectRecord, len(c.records))
	for i, rec := range c.records {
		out[len(c.records)-1-i] = rec
	}
	return out, nil
}

func (c *memCatalog) ListKeys(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}

	keys := make([]string, 0, len(c.records))
	for _, rec := range c.records {
		keys = append(keys, rec.StorageKey)
	}
	return keys, nil
}

func (c *memCatalog) Delete(_ context.Context, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rec := range c.records {
		if rec.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *memCatalog) DeleteByKey(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rec := range c.records {
		if rec.StorageKey == key {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *memCatalog) UpdateAuthFlag(_ context.Context, id int64, required bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rec := range c.records {
		if rec.ID == id {
			c.records[i].AuthRequired = required
			return true, nil
		}
	}
	return false, nil
}

// fakeLister serves a fixed object listing.
type fakeLister struct {
	objects []ListedObject
	err     error
}

func (l *fakeLister) ListObjects(context.Context, string, int) ([]ListedObject, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.objects, nil
}

// fakePresigner returns a deterministic URL for any key.
type fakePresigner struct {
	err error
}

func (p *fakePresigner) PresignedURL(key string, expirySeconds int) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("https://bucket.example.com/%s?expires=%d", key, expirySeconds), nil
}
