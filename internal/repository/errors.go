package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrSlugTaken はスラグの一意制約違反を表す。
// 呼び出し側はスラグを再生成してリトライできる。
var ErrSlugTaken = errors.New("slug already taken")

// ErrEmailTaken はメールアドレスの一意制約違反を表す。
var ErrEmailTaken = errors.New("email already taken")

// uniqueViolation はPostgreSQLのunique_violation (23505)。
const uniqueViolation = "23505"

// isUniqueViolation はerrが指定制約の一意制約違反かどうかを判定する。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}
