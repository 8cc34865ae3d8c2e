package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"telegram-chat-stats/internal/ports"
)

// FileSource реализует интерфейс DataSource для чтения экспорта чата из файла.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// ID возвращает имя файла без каталога и расширения.
func (s *FileSource) ID() string {
	return ChatID(s.filePath)
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл %s: %w", s.filePath, err)
	}

	return data, nil
}

// ChatID превращает путь к файлу экспорта в идентификатор чата.
func ChatID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
