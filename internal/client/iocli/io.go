package iocli

//go:generate moq -out io_mock.go . IO

// IO абстрагирует терминал хоста: вывод, построчный ввод и режим работы
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	// ReadInput печатает prompt и читает одну строку без перевода строки.
	// На конце ввода возвращает io.EOF.
	ReadInput(prompt string) (string, error)
	// Interactive сообщает, подключен ли ввод к терминалу
	Interactive() bool
	Write(p []byte) (n int, err error)
}
