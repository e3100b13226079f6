package compat

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fakeBackend is a minimal in-memory stand-in for the account/container/
// object service, just enough surface for the gateway's translation layer
// to round-trip through: account listing, container CRUD, object CRUD.
// It does not validate X-Auth-Token — any bearer is accepted, mirroring
// the property that the real backend is the trust root, not this test.
type fakeBackend struct {
	mu         sync.Mutex
	containers map[string]map[string]*fakeContainer // account -> name -> container
}

type fakeContainer struct {
	objects map[string]*fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	etag        string
	modified    time.Time
	meta        map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{containers: map[string]map[string]*fakeContainer{}}
}

func (b *fakeBackend) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(b.serveHTTP))
}

func (b *fakeBackend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/v1/"), "/", 3)
	account := parts[0]
	var container, object string
	if len(parts) > 1 {
		container = parts[1]
	}
	if len(parts) > 2 {
		object = parts[2]
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case container == "":
		b.serveAccount(w, r, account)
	case object == "":
		b.serveContainer(w, r, account, container)
	default:
		b.serveObject(w, r, account, container, object)
	}
}

func (b *fakeBackend) serveAccount(w http.ResponseWriter, r *http.Request, account string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	type entry struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}
	var out []entry
	for name := range b.containers[account] {
		out = append(out, entry{Name: name, Owner: account})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (b *fakeBackend) serveContainer(w http.ResponseWriter, r *http.Request, account, container string) {
	accountContainers, ok := b.containers[account]
	switch r.Method {
	case http.MethodPut:
		if !ok {
			accountContainers = map[string]*fakeContainer{}
			b.containers[account] = accountContainers
		}
		if _, exists := accountContainers[container]; !exists {
			accountContainers[container] = &fakeContainer{objects: map[string]*fakeObject{}}
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		c, exists := ok2(accountContainers, container)
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if len(c.objects) > 0 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		delete(accountContainers, container)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
		c, exists := ok2(accountContainers, container)
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		type entry struct {
			Name         string `json:"name"`
			Hash         string `json:"hash"`
			Bytes        int64  `json:"bytes"`
			LastModified string `json:"last_modified"`
		}
		var out []entry
		names := make([]string, 0, len(c.objects))
		for name := range c.objects {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			o := c.objects[name]
			out = append(out, entry{
				Name: name, Hash: o.etag, Bytes: int64(len(o.body)),
				LastModified: o.modified.UTC().Format("2006-01-02T15:04:05.000000"),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Container-Owner", account)
		_ = json.NewEncoder(w).Encode(out)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func ok2(m map[string]*fakeContainer, key string) (*fakeContainer, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m[key]
	return c, ok
}

func (b *fakeBackend) serveObject(w http.ResponseWriter, r *http.Request, account, container, object string) {
	accountContainers := b.containers[account]
	c, ok := ok2(accountContainers, container)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		etag := r.Header.Get("Etag")
		if etag == "" {
			etag = "00000000000000000000000000000000"
		}
		meta := map[string]string{}
		for k, v := range r.Header {
			if lk := strings.ToLower(k); strings.HasPrefix(lk, "x-object-meta-") {
				meta[lk] = v[0]
			}
		}
		c.objects[object] = &fakeObject{
			body: body, contentType: r.Header.Get("Content-Type"),
			etag: etag, modified: time.Now(), meta: meta,
		}
		w.Header().Set("Etag", etag)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet, http.MethodHead:
		o, exists := c.objects[object]
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range o.meta {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(o.body)))
		w.Header().Set("Content-Type", o.contentType)
		w.Header().Set("Etag", o.etag)
		w.Header().Set("Last-Modified", o.modified.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(o.body)
		}
	case http.MethodDelete:
		if _, exists := c.objects[object]; !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(c.objects, object)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

