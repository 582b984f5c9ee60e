package progression

import (
	"context"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ErrKeyNotFound возвращается KeyValueStore.Get для отсутствующего ключа.
var ErrKeyNotFound = shared.NewDomainError("storage", "Get", shared.ErrNotFound, "key not found")

// KeyValueStore - минимальный контракт хранилища: одна запись на ключ.
type KeyValueStore interface {
	// Get возвращает значение по ключу.
	// Возвращает ErrKeyNotFound, если ключа нет.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set записывает значение целиком.
	Set(ctx context.Context, key string, value []byte) error

	// Remove удаляет ключ. Отсутствующий ключ не считается ошибкой.
	Remove(ctx context.Context, key string) error
}

// Repository загружает и сохраняет профиль как одну сериализованную запись.
type Repository interface {
	// Load возвращает сохранённый профиль.
	// Возвращает ошибку с shared.ErrNotFound, если профиля нет,
	// и shared.ErrCorruptState, если запись не прошла проверку.
	Load(ctx context.Context) (*UserProfile, error)

	// Save сохраняет профиль целиком.
	Save(ctx context.Context, profile *UserProfile) error
}
