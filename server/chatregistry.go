package server

import (
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/multierr"
)

// ChatRegistry maps display names to live chat connections. It enforces name
// uniqueness; all other delivery is best effort. Network writes never happen
// while the registry lock is held.
type ChatRegistry struct {
	mu      sync.RWMutex
	clients map[identifiers.UserName]*ChatClient
}

func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{
		clients: map[identifiers.UserName]*ChatClient{},
	}
}

// Register binds name to client. The first registration wins; a name is free
// again only after Unregister.
func (r *ChatRegistry) Register(name identifiers.UserName, client *ChatClient) error {
	if name == "" {
		return errors.Trace(ErrEmptyName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[name]; ok {
		return errors.Annotatef(ErrNameTaken, "name: %s", name)
	}

	r.clients[name] = client

	return nil
}

// Unregister removes name. Removing an absent name is a no-op.
func (r *ChatRegistry) Unregister(name identifiers.UserName) {
	r.mu.Lock()
	delete(r.clients, name)
	r.mu.Unlock()
}

func (r *ChatRegistry) Get(name identifiers.UserName) (*ChatClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]

	return client, ok
}

// Names returns all registered names, sorted.
func (r *ChatRegistry) Names() identifiers.UserNames {
	r.mu.RLock()

	names := make(identifiers.UserNames, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}

	r.mu.RUnlock()

	sort.Sort(names)

	return names
}

func (r *ChatRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// Broadcast delivers env to every registered client except exclude. A failed
// write drops that recipient from the registry and closes its connection.
func (r *ChatRegistry) Broadcast(env message.ChatEnvelope, exclude identifiers.UserName) error {
	r.mu.RLock()

	targets := make([]*ChatClient, 0, len(r.clients))
	for name, client := range r.clients {
		if name != exclude {
			targets = append(targets, client)
		}
	}

	r.mu.RUnlock()

	errs := multierr.New()

	for _, client := range targets {
		if err := client.Write(env); err != nil {
			r.drop(client)
			errs.Add(errors.Trace(err))
		}
	}

	return errs.Err()
}

// Send delivers env to one named client. Missing targets return ErrNotFound;
// a failed write drops the recipient.
func (r *ChatRegistry) Send(name identifiers.UserName, env message.ChatEnvelope) error {
	client, ok := r.Get(name)
	if !ok {
		return errors.Annotatef(ErrNotFound, "name: %s", name)
	}

	if err := client.Write(env); err != nil {
		r.drop(client)

		return errors.Trace(err)
	}

	return nil
}

// drop removes the client only while it is still the registered owner of its
// name, so a reconnected peer with the same name is never evicted by a stale
// failure.
func (r *ChatRegistry) drop(client *ChatClient) {
	name := client.Name()

	r.mu.Lock()
	if r.clients[name] == client {
		delete(r.clients, name)
	}
	r.mu.Unlock()

	_ = client.Close()
}
