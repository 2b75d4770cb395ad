package simchain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Store is the key-value storage a program sees for its own instance.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
	// Keys returns the keys starting with prefix in lexical order.
	Keys(prefix string) []string
}

// kv is committed instance state.
type kv map[string][]byte

// txn buffers writes of one transaction across every instance it touches.
// Nothing reaches committed state until commit.
type txn struct {
	base   map[string]kv
	writes map[string]map[string]*[]byte
}

func newTxn(base map[string]kv) *txn {
	return &txn{base: base, writes: make(map[string]map[string]*[]byte)}
}

func (t *txn) view(addr string) Store {
	return &txnStore{tx: t, addr: addr}
}

func (t *txn) commit() {
	for addr, writes := range t.writes {
		state, ok := t.base[addr]
		if !ok {
			state = make(kv)
			t.base[addr] = state
		}
		for k, v := range writes {
			if v == nil {
				delete(state, k)
				continue
			}
			state[k] = *v
		}
	}
	t.writes = make(map[string]map[string]*[]byte)
}

type txnStore struct {
	tx   *txn
	addr string
}

func (s *txnStore) Get(key string) ([]byte, bool) {
	if w, ok := s.tx.writes[s.addr][key]; ok {
		if w == nil {
			return nil, false
		}
		return *w, true
	}
	v, ok := s.tx.base[s.addr][key]
	return v, ok
}

func (s *txnStore) Set(key string, value []byte) {
	w, ok := s.tx.writes[s.addr]
	if !ok {
		w = make(map[string]*[]byte)
		s.tx.writes[s.addr] = w
	}
	cp := append([]byte(nil), value...)
	w[key] = &cp
}

func (s *txnStore) Delete(key string) {
	w, ok := s.tx.writes[s.addr]
	if !ok {
		w = make(map[string]*[]byte)
		s.tx.writes[s.addr] = w
	}
	w[key] = nil
}

func (s *txnStore) Keys(prefix string) []string {
	seen := make(map[string]bool)
	for k := range s.tx.base[s.addr] {
		if strings.HasPrefix(k, prefix) {
			seen[k] = true
		}
	}
	for k, v := range s.tx.writes[s.addr] {
		if strings.HasPrefix(k, prefix) {
			seen[k] = v != nil
		}
	}
	keys := make([]string, 0, len(seen))
	for k, live := range seen {
		if live {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func loadJSON(s Store, key string, out any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("corrupt state at %q: %w", key, err)
	}
	return true, nil
}

func saveJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state at %q: %w", key, err)
	}
	s.Set(key, raw)
	return nil
}
