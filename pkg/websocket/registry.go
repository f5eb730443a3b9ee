package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// ConnectionRegistry - живые соединения по userID.
// Операции не возвращают ошибок: это учет ресурсов, а не источник бизнес-ошибок.
type ConnectionRegistry interface {
	Register(userID uint64, conn *Connection)
	Unregister(conn *Connection)
	ConnectionsFor(userID uint64) []*Connection
}

// Registry - реализация на одном RWMutex. Соединение принадлежит ровно одному пользователю.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uint64]map[*Connection]struct{}
	owners map[*Connection]uint64
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byUser: make(map[uint64]map[*Connection]struct{}),
		owners: make(map[*Connection]uint64),
		logger: logger,
	}
}

// Register идемпотентен. Повторный identify с другим userID переносит соединение.
// Закрытые соединения и userID == 0 не регистрируются.
func (r *Registry) Register(userID uint64, conn *Connection) {
	if conn == nil || userID == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Проверка под блокировкой реестра: Close выставляет флаг до Unregister.
	if conn.IsClosed() {
		r.logger.Debug("Registry: закрытое соединение не регистрируется", zap.String("connID", conn.ID()))
		return
	}

	if previous, ok := r.owners[conn]; ok {
		if previous == userID {
			return
		}
		r.removeLocked(previous, conn)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Connection]struct{})
		r.byUser[userID] = set
	}
	set[conn] = struct{}{}
	r.owners[conn] = userID

	r.logger.Info("Клиент зарегистрирован",
		zap.Uint64("userID", userID),
		zap.String("connID", conn.ID()),
		zap.Int("userConnections", len(set)),
	)
}

func (r *Registry) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[conn]
	if !ok {
		return
	}
	r.removeLocked(userID, conn)
	r.logger.Info("Клиент отсоединен", zap.Uint64("userID", userID), zap.String("connID", conn.ID()))
}

func (r *Registry) removeLocked(userID uint64, conn *Connection) {
	delete(r.owners, conn)
	if set, ok := r.byUser[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor возвращает снимок; срез принадлежит вызывающему.
func (r *Registry) ConnectionsFor(userID uint64) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	conns := make([]*Connection, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
