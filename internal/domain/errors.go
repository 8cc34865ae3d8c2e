package domain

import "errors"

var (
	// ErrNotAMessage возвращается при попытке разобрать служебную запись как сообщение.
	ErrNotAMessage = errors.New("record is not a message")

	// ErrUnsupportedChat - чат не является личной перепиской двух участников.
	ErrUnsupportedChat = errors.New("unsupported chat: only two-participant personal chats are supported")

	// ErrSelfMismatch - чаты в коллекции расходятся в том, кто является владельцем экспорта.
	ErrSelfMismatch = errors.New("chats disagree on self identity")

	// ErrDuplicateChat - два чата с одинаковым идентификатором в одной коллекции.
	ErrDuplicateChat = errors.New("duplicate chat identifier")

	// ErrReplyCycle - цепочка ответов замкнулась, экспорт поврежден.
	ErrReplyCycle = errors.New("reply chain contains a cycle")

	// ErrNoData - для метрики нет ни одного значения.
	ErrNoData = errors.New("no data")
)
