// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package snapshot stores encoded query results under string keys.
// The tracker store keeps the records of completed time windows here,
// and the whole result of a read keyed by the tracker's last update,
// so that unchanged data is not fetched again.
//
// Values are encoded as CBOR.  Untyped maps decode as
// map[string]interface{} and integers as int64; store times as
// strings.
package snapshot

import (
	"errors"
	"reflect"
	"sync"

	"github.com/ugorji/go/codec"
)

// Store holds snapshots.
type Store interface {
	// Get decodes the snapshot at key into out, which must be a
	// pointer.  It returns false if there is no usable snapshot;
	// an unreadable snapshot is a miss, not an error.
	Get(key string, out interface{}) (bool, error)

	// Put replaces the snapshot at key.
	Put(key string, in interface{}) error
}

// ErrBadKey is returned for a key that is empty or would escape the
// store.
var ErrBadKey = errors.New("bad snapshot key")

// NewCborHandle returns the codec handle snapshots are encoded with.
func NewCborHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	h.SignedInteger = true
	return h
}

// Encode encodes a value as CBOR.
func Encode(in interface{}) (out []byte, err error) {
	encoder := codec.NewEncoderBytes(&out, NewCborHandle())
	err = encoder.Encode(in)
	return
}

// Decode decodes CBOR into out, which must be a pointer.
func Decode(in []byte, out interface{}) error {
	decoder := codec.NewDecoderBytes(in, NewCborHandle())
	return decoder.Decode(out)
}

// Memory is a Store that keeps encoded snapshots in memory.
type Memory struct {
	sem  sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(key string, out interface{}) (bool, error) {
	m.sem.Lock()
	b, present := m.data[key]
	m.sem.Unlock()
	if !present {
		return false, nil
	}
	if err := Decode(b, out); err != nil {
		return false, nil
	}
	return true, nil
}

// Put implements Store.
func (m *Memory) Put(key string, in interface{}) error {
	if key == "" {
		return ErrBadKey
	}
	b, err := Encode(in)
	if err != nil {
		return err
	}
	m.sem.Lock()
	defer m.sem.Unlock()
	m.data[key] = b
	return nil
}

// Len returns the number of snapshots held.
func (m *Memory) Len() int {
	m.sem.Lock()
	defer m.sem.Unlock()
	return len(m.data)
}
