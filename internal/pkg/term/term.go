// Package term определяет, куда пишет CLI: в терминал или в файл/конвейер.
package term

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal сообщает, подключен ли w к терминалу.
// Для writer'ов, не являющихся файлами, возвращает false.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Width возвращает ширину терминала или fallback, если ее не удалось узнать.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
