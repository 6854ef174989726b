package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/model/chat"
)

// BadgerStore persists transcripts in BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	log *zap.Logger
}

// OpenBadger opens (or creates) a transcript database at path.
func OpenBadger(path string, log *zap.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open transcript store %s: %w", path, err)
	}
	return NewBadgerStore(db, log), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB, log *zap.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log.Named("badger")}
}

func chatPrefix(chatID string) []byte {
	return []byte("chat:" + url.QueryEscape(chatID) + ":")
}

// Append stores a message under "chat:{chat}:{unixnano%019d}:{id}" so that a
// prefix scan yields the transcript in chronological order.
func (s *BadgerStore) Append(_ context.Context, message chat.Message) error {
	key := fmt.Sprintf("%s%019d:%s", chatPrefix(message.ChatID), message.CreatedAt.UnixNano(), message.ID)

	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *BadgerStore) List(_ context.Context, chatID string, limit int) ([]chat.Message, error) {
	prefix := chatPrefix(chatID)
	var messages []chat.Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message chat.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			}); err != nil {
				s.log.Warn("skipping unreadable message", zap.ByteString("key", it.Item().KeyCopy(nil)), zap.Error(err))
				continue
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transcript %s: %w", chatID, err)
	}

	return tail(messages, limit), nil
}

func (s *BadgerStore) Delete(_ context.Context, chatID string) error {
	prefix := chatPrefix(chatID)

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete transcript %s: %w", chatID, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
