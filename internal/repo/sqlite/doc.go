// Package sqlite — реализация очереди и кэша поверх SQLite (modernc.org/sqlite).
//
// Используется для single-host развёртывания и в тестах. Контракты те же,
// что у Postgres-реализации в пакете repo: уникальность незавершённой
// задачи на ключ держит частичный уникальный индекс, claim — один
// UPDATE ... RETURNING. Пул ограничен одним соединением, поэтому все
// записи сериализуются на уровне database/sql.
package sqlite
