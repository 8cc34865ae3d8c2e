package parser

import (
	"encoding/json"
	"fmt"

	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
)

// JsonParser реализует интерфейс Parser для разбора JSON экспорта Telegram Desktop.
type JsonParser struct{}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser() ports.Parser {
	return &JsonParser{}
}

// Parse преобразует срез байт с JSON в структуру ExportedChat.
// Форма чата (тип, участники) здесь не проверяется.
func (p *JsonParser) Parse(data []byte) (*domain.ExportedChat, error) {
	var chat domain.ExportedChat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("не удалось разобрать json: %w", err)
	}
	if chat.Type == "" {
		return nil, fmt.Errorf("в экспорте нет поля type: %w", domain.ErrUnsupportedChat)
	}
	return &chat, nil
}
