package exporter

import (
	"encoding/json"
	"fmt"
	"io"

	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
)

// JSONExporter реализует интерфейс Exporter и пишет отчет в JSON.
type JSONExporter struct {
	w      io.Writer
	indent bool
}

// NewJSONExporter создает новый экземпляр JSONExporter.
func NewJSONExporter(w io.Writer, indent bool) ports.Exporter {
	return &JSONExporter{w: w, indent: indent}
}

// Export сериализует отчет целиком.
func (e *JSONExporter) Export(report *domain.Report) error {
	enc := json.NewEncoder(e.w)
	if e.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("не удалось записать json: %w", err)
	}
	return nil
}
