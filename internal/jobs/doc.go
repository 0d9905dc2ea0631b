// Package jobs содержит дескрипторы типов задач.
//
// Дескриптор (Type) — это данные, а не подкласс воркера: версия,
// стратегия вычисления, извлечение identity set из результата и
// зависимый тип задачи. Один generic-воркер выполняет любой
// зарегистрированный тип.
//
// Встроенные типы:
//
//	/splits      — уровень датасета, версия 2.0.0, downstream: /first-rows
//	/first-rows  — уровень split, версия 1.0.0
//
// Compute возвращает либо JSON-результат, либо *apperr.Error. Ошибки
// провайдера переводятся в коды таксономии внутри Compute и дальше
// не распространяются.
package jobs
