//go:build js && wasm

package browser

import "syscall/js"

// Storage wraps window.localStorage.
type Storage struct {
	v js.Value
}

// LocalStorage returns the page's localStorage, or nil when the page has
// none (sandboxed iframes without allow-same-origin throw on access).
func LocalStorage() *Storage {
	var v js.Value
	if err := catch(func() { v = js.Global().Get("localStorage") }); err != nil {
		return nil
	}
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return &Storage{v: v}
}

// GetItem implements frame.Storage.
func (s *Storage) GetItem(key string) (string, bool) {
	v := s.v.Call("getItem", key)
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// SetItem implements frame.Storage; a full quota surfaces as an error.
func (s *Storage) SetItem(key, value string) error {
	return catch(func() { s.v.Call("setItem", key, value) })
}

// RemoveItem implements frame.Storage.
func (s *Storage) RemoveItem(key string) error {
	return catch(func() { s.v.Call("removeItem", key) })
}

// Keys implements frame.Storage.
func (s *Storage) Keys() ([]string, error) {
	n := s.v.Get("length").Int()
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if k := s.v.Call("key", i); !k.IsNull() {
			keys = append(keys, k.String())
		}
	}
	return keys, nil
}

// Clear implements frame.Storage.
func (s *Storage) Clear() error {
	return catch(func() { s.v.Call("clear") })
}
