package repository

import "database/sql"

// Store bundles the MySQL repositories behind one value that satisfies
// service.Store.  All repositories share the TxManager's transaction
// through the context.
type Store struct {
    *TxManager
    *RoomRepo
    *ScreeningRepo
    *RentalRepo
    *SeatReservationRepo
    *PurchaseRepo
    *TicketRepo
}

// NewStore wires every repository to db.
func NewStore(db *sql.DB) *Store {
    return &Store{
        TxManager:           NewTxManager(db),
        RoomRepo:            NewRoomRepo(db),
        ScreeningRepo:       NewScreeningRepo(db),
        RentalRepo:          NewRentalRepo(db),
        SeatReservationRepo: NewSeatReservationRepo(db),
        PurchaseRepo:        NewPurchaseRepo(db),
        TicketRepo:          NewTicketRepo(db),
    }
}
