// Package apperr — таксономия доменных ошибок.
//
// Каждый вариант ошибки связывает стабильный код с HTTP-статусом и
// политикой раскрытия причины (DiscloseCause). Варианты хранятся в
// статическом реестре; типы задач могут добавлять свои через Register.
//
// Ошибки провайдера переводятся в вариант таксономии на границе compute
// и дальше передаются только как *Error. Всё, что не удалось
// классифицировать, становится UnexpectedError.
package apperr
