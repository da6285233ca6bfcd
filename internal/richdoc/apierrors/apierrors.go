// Пакет содержит определения ошибок HTTP-интерфейса редактора. Каждая ошибка имеет код, статус HTTP и описание на английском и русском языках.
//
// Основные возможности:
//   - Ошибки сессий, команд, разметки, режима разметки, файлов и привязок размера.
//   - Коды ошибок, соответствующие кодам HTTP статусов.
//   - Форматирование сообщений с аргументами.
package apierrors

import (
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

var (
	// 1*** - session errors
	ErrSessionNotFound = DefinedError{Code: 1001, StatusCode: http.StatusNotFound, Err: "editor session not found", RuErr: "Сессия редактора не найдена"}
	ErrSessionExpired  = DefinedError{Code: 1002, StatusCode: http.StatusGone, Err: "editor session expired", RuErr: "Срок действия сессии редактора истек"}
	ErrSessionLimit    = DefinedError{Code: 1003, StatusCode: http.StatusTooManyRequests, Err: "too many editor sessions", RuErr: "Открыто слишком много сессий редактора"}

	// 2*** - command errors
	ErrUnknownCommand     = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "unknown command %s", RuErr: "Неизвестная команда %s"}
	ErrInvalidCommandArgs = DefinedError{Code: 2002, StatusCode: http.StatusBadRequest, Err: "invalid command arguments", RuErr: "Неверные аргументы команды"}
	ErrInvalidSelection   = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "invalid selection", RuErr: "Неверное выделение"}

	// 3*** - document errors
	ErrInvalidMarkup   = DefinedError{Code: 3001, StatusCode: http.StatusUnprocessableEntity, Err: "markup cannot be parsed", RuErr: "Не удалось разобрать разметку"}
	ErrInvalidDocument = DefinedError{Code: 3002, StatusCode: http.StatusUnprocessableEntity, Err: "document json is invalid", RuErr: "Некорректный JSON документа"}
	ErrExportFailed    = DefinedError{Code: 3003, StatusCode: http.StatusInternalServerError, Err: "document export failed", RuErr: "Не удалось экспортировать документ"}

	// 4*** - markup view errors
	ErrFormatInProgress     = DefinedError{Code: 4001, StatusCode: http.StatusConflict, Err: "markup formatting is in progress", RuErr: "Идет форматирование разметки"}
	ErrMarkupViewClosed     = DefinedError{Code: 4002, StatusCode: http.StatusConflict, Err: "markup view is not open", RuErr: "Режим разметки не открыт"}
	ErrFormatterUnavailable = DefinedError{Code: 4003, StatusCode: http.StatusServiceUnavailable, Err: "markup formatter is unavailable", RuErr: "Форматер разметки недоступен"}
	ErrFormatFailed         = DefinedError{Code: 4004, StatusCode: http.StatusBadGateway, Err: "markup formatting failed", RuErr: "Не удалось отформатировать разметку"}

	// 5*** - file errors
	ErrFileRequired    = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "file is required", RuErr: "Файл не передан"}
	ErrUnsupportedFile = DefinedError{Code: 5002, StatusCode: http.StatusUnsupportedMediaType, Err: "file type cannot be inserted", RuErr: "Файл такого типа нельзя вставить"}
	ErrUploadFailed    = DefinedError{Code: 5003, StatusCode: http.StatusBadGateway, Err: "file upload failed", RuErr: "Не удалось загрузить файл"}
	ErrEntityToLarge   = DefinedError{Code: 5004, StatusCode: http.StatusRequestEntityTooLarge, Err: "request entity too large", RuErr: "Размер запроса слишком большой"}
	ErrUploadQuota     = DefinedError{Code: 5005, StatusCode: http.StatusForbidden, Err: "upload quota exceeded", RuErr: "Превышена квота загрузки файлов"}

	// 6*** - view binding errors
	ErrNotResizable     = DefinedError{Code: 6001, StatusCode: http.StatusBadRequest, Err: "node at position is not resizable", RuErr: "Узел в этой позиции нельзя масштабировать"}
	ErrBindingDisposed  = DefinedError{Code: 6002, StatusCode: http.StatusGone, Err: "view binding is disposed", RuErr: "Привязка узла закрыта"}
	ErrUnknownPointerOp = DefinedError{Code: 6003, StatusCode: http.StatusBadRequest, Err: "unknown pointer event %s", RuErr: "Неизвестное событие указателя %s"}

	// 7*** - normalizer errors
	ErrNotEmbeddable = DefinedError{Code: 7001, StatusCode: http.StatusUnprocessableEntity, Err: "url is not embeddable", RuErr: "Ссылка не распознана ни одним провайдером"}

	// 9*** - generic errors
	ErrGeneric        = DefinedError{Code: 9001, StatusCode: http.StatusInternalServerError, Err: "internal error", RuErr: "Внутренняя ошибка"}
	ErrInvalidRequest = DefinedError{Code: 9002, StatusCode: http.StatusBadRequest, Err: "invalid request: %s", RuErr: "Неверный запрос: %s"}
)

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		e.RuErr = fmt.Sprintf(e.RuErr, args...)
	} else {
		e.Err = strings.Replace(e.Err, "%s", "", -1)
		e.RuErr = strings.Replace(e.RuErr, "%s", "", -1)
	}
	return e
}
