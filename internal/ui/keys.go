package ui

import "sync"

// keyStore is the credential capability handed to the gemini clients: the
// terminal analog of the hosted key selector. A key counts as "selected"
// when one is present; "opening the selector" flags the UI to prompt for a
// new key on the next update. Safe for use from command goroutines.
type keyStore struct {
	mu      sync.Mutex
	key     string
	pending bool
}

func newKeyStore(key string) *keyStore {
	return &keyStore{key: key}
}

func (k *keyStore) Get() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key
}

func (k *keyStore) Set(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	k.pending = false
}

func (k *keyStore) HasSelectedKey() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key != ""
}

func (k *keyStore) OpenSelectKey() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending = true
	return nil
}

// ConsumePending reports whether a re-select was requested since the last
// call and clears the flag.
func (k *keyStore) ConsumePending() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := k.pending
	k.pending = false
	return p
}
