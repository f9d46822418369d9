package main

import (
	"errors"
	"fmt"
)

// ErrLinkedTransaction rejects direct deletion of a payment-linked
// transaction; it is only removed as a side effect of deleting the owning
// student.
var ErrLinkedTransaction = errors.New("transaksi terhubung dengan pembayaran mahasiswa; hapus data mahasiswa terkait untuk menghapusnya")

// PartialError reports a multi-step command where an earlier step succeeded
// and a later one failed. There is no cross-collection transaction, so the
// store is left in a known-inconsistent state a human must reconcile; this
// is surfaced distinctly from full failures.
type PartialError struct {
	Op        string // command name
	Completed string // step that succeeded
	Failed    string // step that failed
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %s berhasil, tapi %s gagal: %v", e.Op, e.Completed, e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// RowError is one rejected line of a bulk student import.
type RowError struct {
	Baris int    `json:"baris"` // 1-based input line number
	Pesan string `json:"pesan"`
}
