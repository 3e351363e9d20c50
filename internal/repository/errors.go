// Package repository implements the booking core's persistence on MySQL.
// Not-found results are returned as the sentinels below, all of which
// match model.ErrNotFound, so handlers can tell them apart from store
// failures.  Lost unique-key races surface as model.ErrDuplicate.
package repository

import (
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

var (
    ErrRoomNotFound     = &model.Error{Kind: model.ErrNotFound, Msg: "room not found"}
    ErrShowNotFound     = &model.Error{Kind: model.ErrNotFound, Msg: "show not found"}
    ErrRentalNotFound   = &model.Error{Kind: model.ErrNotFound, Msg: "rental not found"}
    ErrPurchaseNotFound = &model.Error{Kind: model.ErrNotFound, Msg: "purchase not found"}
    ErrTicketNotFound   = &model.Error{Kind: model.ErrNotFound, Msg: "ticket not found"}
)

// MySQL server error numbers the core reacts to.
const (
    erDupEntry     = 1062
    erLockDeadlock = 1213
)

// classify wraps duplicate-key and deadlock errors in model.ErrDuplicate.
// Both mean a concurrent writer won the same unique key; InnoDB reports
// the second as a deadlock when two inserts race on a gap lock.
func classify(err error) error {
    if err == nil {
        return nil
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) && (me.Number == erDupEntry || me.Number == erLockDeadlock) {
        return fmt.Errorf("%w: %s", model.ErrDuplicate, me.Message)
    }
    return err
}
