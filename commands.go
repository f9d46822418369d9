package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"kaspku/models"
	"kaspku/pkg/ledger"
)

// ErrValidasi marks malformed or missing user input, caught before any
// store write. Handlers map it to a 400.
var ErrValidasi = errors.New("input tidak valid")

func validasi(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidasi, fmt.Sprintf(format, args...))
}

// Verification decisions for pending payments.
const (
	DecisionApprove = "setujui"
	DecisionReject  = "tolak"
)

// PaymentInput carries the fields of a dues payment before it is stored.
type PaymentInput struct {
	StudentID    string
	PeriodeBulan string // YYYY-MM
	Tanggal      time.Time
	Jumlah       int64
	Metode       string
	BuktiURL     string
}

// ParsePeriodeBulan normalizes a YYYY-MM value to the first day of that
// month, UTC.
func ParsePeriodeBulan(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, validasi("periode bulan harus berformat YYYY-MM")
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

func (s *Store) validatePaymentInput(in PaymentInput) (models.Student, time.Time, error) {
	var student models.Student
	if in.StudentID == "" {
		return student, time.Time{}, validasi("mahasiswa wajib dipilih")
	}
	if in.Jumlah <= 0 {
		return student, time.Time{}, validasi("jumlah harus lebih dari 0")
	}
	if strings.TrimSpace(in.Metode) == "" {
		return student, time.Time{}, validasi("metode pembayaran wajib diisi")
	}
	periode, err := ParsePeriodeBulan(in.PeriodeBulan)
	if err != nil {
		return student, time.Time{}, err
	}
	if err := s.db.First(&student, "id = ?", in.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return student, time.Time{}, validasi("mahasiswa tidak ditemukan")
		}
		return student, time.Time{}, fmt.Errorf("memuat mahasiswa: %w", err)
	}
	return student, periode, nil
}

// SubmitPayment records a student-submitted payment as pending. No ledger
// entry exists until an admin approves it.
func (s *Store) SubmitPayment(in PaymentInput) (*models.Payment, error) {
	_, periode, err := s.validatePaymentInput(in)
	if err != nil {
		return nil, err
	}
	if in.BuktiURL == "" {
		return nil, validasi("bukti pembayaran wajib diunggah")
	}
	p := models.Payment{
		StudentID:    in.StudentID,
		PeriodeBulan: periode,
		Tanggal:      in.Tanggal,
		Jumlah:       in.Jumlah,
		Metode:       in.Metode,
		BuktiURL:     in.BuktiURL,
		Status:       models.StatusPending,
	}
	if err := s.CreatePayment(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddValidatedPayment records a payment the admin has already verified:
// the payment is written with status valid, then its derived ledger entry.
// If the transaction write fails after the payment succeeded, the result is
// a PartialError, not a rollback.
func (s *Store) AddValidatedPayment(in PaymentInput, admin string) (*models.Payment, error) {
	student, periode, err := s.validatePaymentInput(in)
	if err != nil {
		return nil, err
	}
	verifiedBy := admin
	p := models.Payment{
		StudentID:    in.StudentID,
		PeriodeBulan: periode,
		Tanggal:      in.Tanggal,
		Jumlah:       in.Jumlah,
		Metode:       in.Metode,
		BuktiURL:     in.BuktiURL,
		Status:       models.StatusValid,
		VerifiedBy:   &verifiedBy,
	}
	if err := s.CreatePayment(&p); err != nil {
		return nil, err
	}
	tx := ledger.DeriveTransactionForPayment(p, student, admin)
	if err := s.CreateTransaction(&tx); err != nil {
		return &p, &PartialError{
			Op:        "tambah pembayaran tervalidasi",
			Completed: "pencatatan pembayaran",
			Failed:    "pencatatan transaksi",
			Err:       err,
		}
	}
	return &p, nil
}

// ApprovePendingPayment decides a pending submission. Approval marks the
// payment valid and creates the same derived transaction as direct
// recording; rejection only flips the status.
func (s *Store) ApprovePendingPayment(paymentID, decision, admin string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validasi("pembayaran tidak ditemukan")
		}
		return nil, fmt.Errorf("memuat pembayaran: %w", err)
	}
	if p.Status != models.StatusPending {
		return nil, validasi("pembayaran sudah diverifikasi")
	}
	verifiedBy := admin
	switch decision {
	case DecisionReject:
		p.Status = models.StatusRejected
		p.VerifiedBy = &verifiedBy
		if err := s.SavePayment(&p); err != nil {
			return nil, err
		}
		return &p, nil
	case DecisionApprove:
		var student models.Student
		if err := s.db.First(&student, "id = ?", p.StudentID).Error; err != nil {
			return nil, fmt.Errorf("memuat mahasiswa: %w", err)
		}
		p.Status = models.StatusValid
		p.VerifiedBy = &verifiedBy
		if err := s.SavePayment(&p); err != nil {
			return nil, err
		}
		tx := ledger.DeriveTransactionForPayment(p, student, admin)
		if err := s.CreateTransaction(&tx); err != nil {
			return &p, &PartialError{
				Op:        "verifikasi pembayaran",
				Completed: "validasi pembayaran",
				Failed:    "pencatatan transaksi",
				Err:       err,
			}
		}
		return &p, nil
	default:
		return nil, validasi("keputusan harus %q atau %q", DecisionApprove, DecisionReject)
	}
}

// DeleteStudent removes a student together with their payments and linked
// transactions. The linked transactions must go first: they only
// soft-reference payments, so deleting the student before cleaning them up
// would leave orphaned income rows with dangling references.
func (s *Store) DeleteStudent(studentID string) error {
	var student models.Student
	if err := s.db.First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validasi("mahasiswa tidak ditemukan")
		}
		return fmt.Errorf("memuat mahasiswa: %w", err)
	}
	payments, err := s.paymentsOfStudent(studentID)
	if err != nil {
		return err
	}
	deleted := 0
	if len(payments) > 0 {
		ids := make([]string, len(payments))
		for i, p := range payments {
			ids[i] = p.ID
		}
		linked, err := s.transactionsByRefPayments(ids)
		if err != nil {
			return err
		}
		for _, tx := range linked {
			if err := s.deleteTransactionRow(tx); err != nil {
				return s.partialDelete(deleted, err)
			}
			deleted++
		}
		for _, p := range payments {
			if err := s.deletePaymentRow(p); err != nil {
				return s.partialDelete(deleted, err)
			}
			deleted++
		}
	}
	if err := s.deleteStudentRow(student); err != nil {
		return s.partialDelete(deleted, err)
	}
	return nil
}

func (s *Store) partialDelete(deletedSoFar int, err error) error {
	if deletedSoFar == 0 {
		return err
	}
	return &PartialError{
		Op:        "hapus mahasiswa",
		Completed: fmt.Sprintf("penghapusan %d baris terkait", deletedSoFar),
		Failed:    "penghapusan baris berikutnya",
		Err:       err,
	}
}

// DeleteTransaction removes a manual income/expense entry. Payment-linked
// transactions are refused; they disappear only via DeleteStudent.
func (s *Store) DeleteTransaction(transactionID string) error {
	var tx models.Transaction
	if err := s.db.First(&tx, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validasi("transaksi tidak ditemukan")
		}
		return fmt.Errorf("memuat transaksi: %w", err)
	}
	if tx.Linked() {
		return ErrLinkedTransaction
	}
	return s.deleteTransactionRow(tx)
}

// UpdateTransaction applies a patch under the linked-transaction field
// restriction: for linked rows only deskripsi, sumber_dana and nota_url are
// accepted and the rest of the patch is silently discarded.
func (s *Store) UpdateTransaction(transactionID string, patch models.Transaction) (*models.Transaction, error) {
	var existing models.Transaction
	if err := s.db.First(&existing, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validasi("transaksi tidak ditemukan")
		}
		return nil, fmt.Errorf("memuat transaksi: %w", err)
	}
	merged := ledger.MergeLinkedUpdate(existing, patch)
	if err := validateTransactionFields(&merged); err != nil {
		return nil, err
	}
	if err := s.SaveTransaction(&merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// validateTransactionFields guards every path that stores a transaction:
// a row with a tipe or sumber dana outside the known values would count
// toward the total balance but toward neither fund.
func validateTransactionFields(t *models.Transaction) error {
	if t.Tipe != models.TipePemasukan && t.Tipe != models.TipePengeluaran {
		return validasi("tipe harus %q atau %q", models.TipePemasukan, models.TipePengeluaran)
	}
	if t.SumberDana != models.SumberKas && t.SumberDana != models.SumberInfak {
		return validasi("sumber dana harus %q atau %q", models.SumberKas, models.SumberInfak)
	}
	if strings.TrimSpace(t.Kategori) == "" || strings.TrimSpace(t.Deskripsi) == "" {
		return validasi("kategori dan deskripsi wajib diisi")
	}
	if t.Jumlah <= 0 {
		return validasi("jumlah harus lebih dari 0")
	}
	return nil
}

// AddManualTransaction records an admin-entered income or expense with no
// payment linkage.
func (s *Store) AddManualTransaction(t *models.Transaction, admin string) error {
	if err := validateTransactionFields(t); err != nil {
		return err
	}
	createdBy := admin
	t.RefPayment = nil
	t.CreatedBy = &createdBy
	if t.Tanggal.IsZero() {
		t.Tanggal = time.Now()
	}
	return s.CreateTransaction(t)
}

// ParseStudentRows parses bulk-import text, one "NIM,Nama,Angkatan" row per
// line. Rows not yielding exactly three non-empty fields are collected into
// the error report instead of aborting the batch; blank lines are skipped
// but still counted for row numbering.
func ParseStudentRows(raw string) ([]models.Student, []RowError) {
	var students []models.Student
	var rowErrs []RowError
	// only trailing newlines are trimmed: leading blank lines must keep
	// counting so Baris matches the pasted input
	for i, line := range strings.Split(strings.TrimRight(raw, "\r\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			rowErrs = append(rowErrs, RowError{Baris: i + 1, Pesan: "format tidak sesuai (harus NIM,Nama,Angkatan)"})
			continue
		}
		nim := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		angkatan := strings.TrimSpace(parts[2])
		if nim == "" || name == "" || angkatan == "" {
			rowErrs = append(rowErrs, RowError{Baris: i + 1, Pesan: "NIM, Nama, atau Angkatan tidak boleh kosong"})
			continue
		}
		students = append(students, models.Student{NIM: nim, Name: name, Angkatan: angkatan})
	}
	return students, rowErrs
}

// BulkImportStudents commits a pasted batch only when every row parses;
// otherwise nothing is written and the full error list is returned.
func (s *Store) BulkImportStudents(raw string) (int, []RowError, error) {
	students, rowErrs := ParseStudentRows(raw)
	if len(rowErrs) > 0 {
		return 0, rowErrs, nil
	}
	if len(students) == 0 {
		return 0, nil, validasi("tidak ada data mahasiswa untuk ditambahkan")
	}
	if err := s.CreateStudents(students); err != nil {
		return 0, nil, err
	}
	return len(students), nil, nil
}
