package source

import (
	"fmt"

	"telegram-chat-stats/internal/ports"
)

// MemorySource реализует интерфейс DataSource для данных, уже загруженных в память,
// например файлов из multipart-запроса.
type MemorySource struct {
	id   string
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(id string, data []byte) ports.DataSource {
	return &MemorySource{id: id, data: data}
}

// ID возвращает идентификатор чата.
func (s *MemorySource) ID() string {
	return s.id
}

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные чата %s не установлены", s.id)
	}

	// Возвращаем копию, чтобы вызывающий код не менял исходный буфер
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
