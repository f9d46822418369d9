package main

import (
	"fmt"

	"gorm.io/gorm"

	"kaspku/models"
	"kaspku/pkg/feed"
)

// Store is the entity store facade: every confirmed write goes through it
// and is followed by a change event on the hub, so the mirror and any feed
// clients see exactly the writes the database accepted. Reads for the
// initial bulk load also live here.
type Store struct {
	db  *gorm.DB
	hub *feed.Hub
}

func NewStore(db *gorm.DB, hub *feed.Hub) *Store {
	return &Store{db: db, hub: hub}
}

func (s *Store) publish(c feed.Collection, k feed.Kind, entity any) {
	s.hub.Publish(feed.Event{Collection: c, Kind: k, Entity: entity})
}

// --- students ---

func (s *Store) ListStudents() ([]models.Student, error) {
	var out []models.Student
	if err := s.db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("memuat mahasiswa: %w", err)
	}
	return out, nil
}

func (s *Store) CreateStudent(st *models.Student) error {
	if err := s.db.Create(st).Error; err != nil {
		return fmt.Errorf("menambah mahasiswa: %w", err)
	}
	s.publish(feed.CollectionStudents, feed.KindCreated, *st)
	return nil
}

// CreateStudents inserts a batch in one write; either all rows are inserted
// or none (bulk import is all-or-nothing).
func (s *Store) CreateStudents(sts []models.Student) error {
	if err := s.db.Create(&sts).Error; err != nil {
		return fmt.Errorf("menambah mahasiswa massal: %w", err)
	}
	for _, st := range sts {
		s.publish(feed.CollectionStudents, feed.KindCreated, st)
	}
	return nil
}

func (s *Store) SaveStudent(st *models.Student) error {
	if err := s.db.Save(st).Error; err != nil {
		return fmt.Errorf("memperbarui mahasiswa: %w", err)
	}
	s.publish(feed.CollectionStudents, feed.KindUpdated, *st)
	return nil
}

func (s *Store) deleteStudentRow(st models.Student) error {
	if err := s.db.Delete(&models.Student{}, "id = ?", st.ID).Error; err != nil {
		return fmt.Errorf("menghapus mahasiswa: %w", err)
	}
	s.publish(feed.CollectionStudents, feed.KindDeleted, st)
	return nil
}

// --- payments ---

func (s *Store) ListPayments() ([]models.Payment, error) {
	var out []models.Payment
	if err := s.db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("memuat pembayaran: %w", err)
	}
	return out, nil
}

func (s *Store) paymentsOfStudent(studentID string) ([]models.Payment, error) {
	var out []models.Payment
	if err := s.db.Where("student_id = ?", studentID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("memuat pembayaran mahasiswa: %w", err)
	}
	return out, nil
}

func (s *Store) CreatePayment(p *models.Payment) error {
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("mencatat pembayaran: %w", err)
	}
	s.publish(feed.CollectionPayments, feed.KindCreated, *p)
	return nil
}

func (s *Store) SavePayment(p *models.Payment) error {
	if err := s.db.Save(p).Error; err != nil {
		return fmt.Errorf("memperbarui pembayaran: %w", err)
	}
	s.publish(feed.CollectionPayments, feed.KindUpdated, *p)
	return nil
}

func (s *Store) deletePaymentRow(p models.Payment) error {
	if err := s.db.Delete(&models.Payment{}, "id = ?", p.ID).Error; err != nil {
		return fmt.Errorf("menghapus pembayaran: %w", err)
	}
	s.publish(feed.CollectionPayments, feed.KindDeleted, p)
	return nil
}

// --- transactions ---

func (s *Store) ListTransactions() ([]models.Transaction, error) {
	var out []models.Transaction
	if err := s.db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("memuat transaksi: %w", err)
	}
	return out, nil
}

func (s *Store) transactionsByRefPayments(paymentIDs []string) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := s.db.Where("ref_payment IN ?", paymentIDs).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("memuat transaksi terkait: %w", err)
	}
	return out, nil
}

func (s *Store) CreateTransaction(t *models.Transaction) error {
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("mencatat transaksi: %w", err)
	}
	s.publish(feed.CollectionTransactions, feed.KindCreated, *t)
	return nil
}

func (s *Store) SaveTransaction(t *models.Transaction) error {
	if err := s.db.Save(t).Error; err != nil {
		return fmt.Errorf("memperbarui transaksi: %w", err)
	}
	s.publish(feed.CollectionTransactions, feed.KindUpdated, *t)
	return nil
}

func (s *Store) deleteTransactionRow(t models.Transaction) error {
	if err := s.db.Delete(&models.Transaction{}, "id = ?", t.ID).Error; err != nil {
		return fmt.Errorf("menghapus transaksi: %w", err)
	}
	s.publish(feed.CollectionTransactions, feed.KindDeleted, t)
	return nil
}
