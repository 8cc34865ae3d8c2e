package ports

import (
	"telegram-chat-stats/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
	// ID возвращает идентификатор чата, который дает источник.
	ID() string
}

// Parser определяет интерфейс для парсинга данных чата.
type Parser interface {
	// Parse преобразует сырые данные в структурированную модель чата.
	Parse(data []byte) (*domain.ExportedChat, error)
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	// Export принимает готовый отчет и выводит его.
	Export(report *domain.Report) error
}
