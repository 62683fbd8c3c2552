// Package idempotency maps stable provisioning keys to the resources they
// produced, so a provisioning step runs at most once per key.
package idempotency

// Index is a persisted key -> resource id map. The zero value is ready to use.
type Index map[string]string

// Provision returns the resource recorded for key. On a miss it calls build,
// records the id it returns and reports created=true.
func (ix *Index) Provision(key string, build func() string) (id string, created bool) {
	if existing, ok := (*ix)[key]; ok {
		return existing, false
	}
	if *ix == nil {
		*ix = make(Index)
	}
	id = build()
	(*ix)[key] = id
	return id, true
}

func (ix Index) Lookup(key string) (string, bool) {
	id, ok := ix[key]
	return id, ok
}

// Forget drops key and returns the id it pointed at.
func (ix Index) Forget(key string) (string, bool) {
	id, ok := ix[key]
	if ok {
		delete(ix, key)
	}
	return id, ok
}

// ForgetResource drops every key pointing at id.
func (ix Index) ForgetResource(id string) {
	for k, v := range ix {
		if v == id {
			delete(ix, k)
		}
	}
}
