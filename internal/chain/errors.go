package chain

import (
	"errors"
	"fmt"
)

// идентификатор игры вне допустимого диапазона: такой id молча
// адресовал бы чужой или несуществующий аккаунт, поэтому падаем сразу
var ErrInvalidIdentifier = errors.New("неверный идентификатор игры")

// в структурированном режиме не хватает обязательного флага
type MissingParameterError struct {
	Flag string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("отсутствует обязательный флаг --%s", e.Flag)
}

// программа отклонила инструкцию (нелегальный ход, не хватает
// ресурсов, не тот статус игры). Всегда восстановимо, причина
// показывается пользователю как есть, без авто-ретраев.
type ProgramRejection struct {
	Reason string
	Logs   []string
}

func (e *ProgramRejection) Error() string {
	return e.Reason
}

// от сервиса не пришел ответ; пользователь может повторить вручную
type TransportFailure struct {
	Err error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("нет ответа от сервиса: %v", e.Err)
}

func (e *TransportFailure) Unwrap() error {
	return e.Err
}
