package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/realAndi/PWAChat/pkg"
)

// SQLite birincil sonuç kodları (extended kodların alt 8 biti).
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// Classify, driver hatasını inceler; geçici (tekrar denenebilir) olanları
// pkg.ErrTransient ile sarar. Diğer hatalar olduğu gibi döner.
//
// Geçici kabul edilenler:
//   - driver.ErrBadConn, net.Error, context.DeadlineExceeded
//   - SQLite BUSY / LOCKED
//   - PostgreSQL sınıf 08 (bağlantı), 57P01-57P03 (shutdown), 40001, 40P01
func Classify(err error) error {
	if err == nil || errors.Is(err, pkg.ErrTransient) {
		return err
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", pkg.ErrTransient, err)
	}
	return err
}

// IsTransient, hatanın geçici bir store hatası olup olmadığını söyler.
func IsTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return true
		}
		switch pqErr.Code {
		case "57P01", "57P02", "57P03", "40001", "40P01":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
