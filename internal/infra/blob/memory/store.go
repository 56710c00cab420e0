// Package memory implements an in-memory blob store for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"roadmapcore/internal/blob/core"
)

type object struct {
	info core.Info
	data []byte
}

// Store keeps artifacts in process memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New returns an empty in-memory store.
func New() *Store { return &Store{objects: make(map[string]object)} }

// Driver implements core.Store.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put implements core.Store. Existing keys are rejected.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(data)
	info := core.Info{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opts.ContentType,
		Metadata:     core.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objects[key] = object{info: info, data: data}
	return info, nil
}

// Get implements core.Store.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("blob %s not found", key)
	}
	data := append([]byte(nil), obj.data...)
	info := obj.info
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Head implements core.Store.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("blob %s not found", key)
	}
	info := obj.info
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, nil
}

// Delete implements core.Store.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	delete(s.objects, key)
	return ok, nil
}

// List implements core.Store.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objects))
	for key, obj := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		info := obj.info
		info.Metadata = core.CloneMetadata(info.Metadata)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PresignURL implements core.Store; the memory driver cannot presign.
func (s *Store) PresignURL(context.Context, string, core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}
