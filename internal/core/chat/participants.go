package chat

import (
	"fmt"

	"telegram-chat-stats/internal/domain"
)

// ExtractParticipants возвращает уникальных отправителей сообщений в порядке первого появления.
// Уникальность определяется по from_id, имя берется из первого сообщения отправителя.
func ExtractParticipants(exported *domain.ExportedChat) []domain.Participant {
	var participants []domain.Participant
	seen := make(map[string]bool)

	for _, msg := range exported.Messages {
		if !msg.IsMessage() {
			continue
		}
		key := msg.FromID
		if key == "" {
			// Старые экспорты без from_id: различаем по имени
			key = "name:" + msg.From
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		participants = append(participants, domain.Participant{ID: msg.FromID, Name: msg.From})
	}

	return participants
}

// resolveSelf определяет владельца экспорта: единственного участника,
// чье имя не совпадает с именем собеседника.
func resolveSelf(counterpart string, participants []domain.Participant) (string, error) {
	if len(participants) != 2 {
		return "", fmt.Errorf("найдено %d участников вместо 2: %w", len(participants), domain.ErrUnsupportedChat)
	}

	var self []string
	for _, p := range participants {
		if p.Name != counterpart {
			self = append(self, p.Name)
		}
	}
	if len(self) != 1 {
		return "", fmt.Errorf("не удалось определить владельца экспорта для собеседника %q: %w", counterpart, domain.ErrUnsupportedChat)
	}
	return self[0], nil
}
