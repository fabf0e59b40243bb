package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/storage"
)

// StateKey is the storage key of the state blob for a single-user install.
const StateKey = "growth-hub-storage"

// Persister loads and saves the whole state blob.
type Persister interface {
	Load() (models.State, error)
	Save(models.State) error
}

// SessionKey returns the state key for one chat session.
func SessionKey(session string) string {
	if session == "" {
		return StateKey
	}
	return StateKey + ":" + session
}

// BlobPersister stores the state as one JSON document in a storage.Storage.
type BlobPersister struct {
	store   storage.Storage
	key     string
	timeout time.Duration
}

func NewBlobPersister(store storage.Storage, key string) *BlobPersister {
	return &BlobPersister{store: store, key: key, timeout: 5 * time.Second}
}

// Load returns the stored state. A missing blob is a fresh state, not an
// error. Fields absent from the blob keep their defaults.
func (p *BlobPersister) Load() (models.State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	state := models.NewState()
	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, storage.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("load state %s: %w", p.key, err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return models.NewState(), fmt.Errorf("decode state %s: %w", p.key, err)
	}
	return state, nil
}

// Save writes the state. In session mode the API key, messages, archived
// conversations and long-term summary are stripped first.
func (p *BlobPersister) Save(state models.State) error {
	if state.Settings.SessionMode {
		state = stripSession(state)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", p.key, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Put(ctx, p.key, data); err != nil {
		return fmt.Errorf("save state %s: %w", p.key, err)
	}
	return nil
}

func stripSession(state models.State) models.State {
	state.Settings.APIConfig.APIKey = ""
	state.Messages = []models.Message{}
	state.Conversations = []models.ConversationRecord{}
	state.LongTermSummary = ""
	return state
}
