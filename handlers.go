package main

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kaspku/models"
	"kaspku/pkg/feed"
	"kaspku/pkg/ledger"
	"kaspku/pkg/mirror"
	"kaspku/pkg/report"
)

const maxUploadBytes = 5 * 1024 * 1024

// app wires the handlers to the store, the mirror and the session gate.
// Public reads serve mirror snapshots; every write goes through the command
// layer and comes back as a feed event.
type app struct {
	store  *Store
	mirror *mirror.Mirror
	hub    *feed.Hub
	guard  *loginGuard
}

func setupRoutes(r *gin.Engine, a *app) {
	r.POST("/login", a.loginHandler)
	r.GET("/summary", a.summaryHandler)
	r.GET("/transactions", a.listTransactionsHandler)
	r.GET("/transactions/bulanan", a.monthlyHandler)
	r.GET("/transactions/kategori", a.categoryHandler)
	r.GET("/students", a.listStudentsHandler)
	r.GET("/payments", a.listPaymentsHandler)
	r.POST("/payments", a.submitPaymentHandler)
	r.GET("/feed", a.feedHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.POST("/students", a.createStudentHandler)
	authGroup.PUT("/students/:id", a.updateStudentHandler)
	authGroup.DELETE("/students/:id", a.deleteStudentHandler)
	authGroup.POST("/students/bulk", a.bulkImportHandler)
	authGroup.GET("/payments/pending", a.pendingPaymentsHandler)
	authGroup.POST("/payments/:id/verify", a.verifyPaymentHandler)
	authGroup.POST("/payments/tercatat", a.addValidatedPaymentHandler)
	authGroup.POST("/transactions", a.createTransactionHandler)
	authGroup.PUT("/transactions/:id", a.updateTransactionHandler)
	authGroup.DELETE("/transactions/:id", a.deleteTransactionHandler)
	authGroup.POST("/uploads", a.uploadHandler)
	authGroup.GET("/export", a.exportHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		c.Set("username", username)
		c.Next()
	}
}

func adminFromContext(c *gin.Context) string {
	v, _ := c.Get("username")
	username, _ := v.(string)
	return username
}

// respondCommandError maps the error taxonomy onto HTTP: validation errors
// to 400, the linked-transaction refusal to 409, partial failures to 207
// with partial:true so the client can tell the store needs manual
// reconciliation, anything else to 500.
func respondCommandError(c *gin.Context, err error) {
	var pe *PartialError
	switch {
	case errors.As(err, &pe):
		c.JSON(http.StatusMultiStatus, gin.H{
			"partial":   true,
			"completed": pe.Completed,
			"failed":    pe.Failed,
			"error":     pe.Error(),
		})
	case errors.Is(err, ErrLinkedTransaction):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrValidasi):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// --- auth ---

func (a *app) loginHandler(c *gin.Context) {
	if locked, remaining := a.guard.Locked(); locked {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":         "Terlalu banyak percobaan gagal. Akun terkunci.",
			"retry_seconds": int(remaining.Seconds()),
		})
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		remaining := a.guard.Fail()
		if remaining == 0 {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":         "Terlalu banyak percobaan gagal. Akun terkunci.",
				"retry_seconds": int(lockoutDuration.Seconds()),
			})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Password salah. Sisa percobaan: %d", remaining)})
		return
	}
	a.guard.Reset()
	tokenString, err := issueToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// --- public reads (mirror snapshots) ---

func (a *app) summaryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ledger.ComputeBalances(a.mirror.Transactions()))
}

func (a *app) listTransactionsHandler(c *gin.Context) {
	txs := a.mirror.Transactions()
	if w := c.Query("window"); w != "" {
		window, err := ledger.ParseWindow(w)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txs = ledger.FilterByWindow(txs, window, time.Now())
	}
	c.JSON(http.StatusOK, txs)
}

func (a *app) monthlyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ledger.GroupByMonth(a.mirror.Transactions()))
}

func (a *app) categoryHandler(c *gin.Context) {
	tipe := c.DefaultQuery("tipe", models.TipePengeluaran)
	if tipe != models.TipePemasukan && tipe != models.TipePengeluaran {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tipe tidak dikenal"})
		return
	}
	c.JSON(http.StatusOK, ledger.GroupByCategory(a.mirror.Transactions(), tipe))
}

func (a *app) listStudentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.mirror.Students())
}

func (a *app) listPaymentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.mirror.Payments())
}

func (a *app) pendingPaymentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.mirror.PendingPayments())
}

// --- students ---

func (a *app) createStudentHandler(c *gin.Context) {
	var req struct {
		NIM      string `json:"nim" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Angkatan string `json:"angkatan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st := models.Student{NIM: req.NIM, Name: req.Name, Angkatan: req.Angkatan}
	if err := a.store.CreateStudent(&st); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *app) updateStudentHandler(c *gin.Context) {
	var req struct {
		NIM      string `json:"nim" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Angkatan string `json:"angkatan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := a.mirror.Student(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "mahasiswa tidak ditemukan"})
		return
	}
	st.NIM = req.NIM
	st.Name = req.Name
	st.Angkatan = req.Angkatan
	if err := a.store.SaveStudent(&st); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *app) deleteStudentHandler(c *gin.Context) {
	if err := a.store.DeleteStudent(c.Param("id")); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mahasiswa dihapus"})
}

func (a *app) bulkImportHandler(c *gin.Context) {
	var req struct {
		Data string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, rowErrs, err := a.store.BulkImportStudents(req.Data)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	if len(rowErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      fmt.Sprintf("ditemukan %d baris bermasalah, tidak ada data yang disimpan", len(rowErrs)),
			"row_errors": rowErrs,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("berhasil menambahkan %d mahasiswa", count)})
}

// --- payments ---

// submitPaymentHandler is the public submission form: multipart fields plus
// the proof image. The payment lands as pending, without a ledger entry.
func (a *app) submitPaymentHandler(c *gin.Context) {
	var req struct {
		StudentID    string `form:"student_id" binding:"required"`
		PeriodeBulan string `form:"periode_bulan" binding:"required"`
		Jumlah       int64  `form:"jumlah" binding:"required"`
		Metode       string `form:"metode" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	file, err := c.FormFile("bukti")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bukti pembayaran wajib diunggah"})
		return
	}
	buktiURL, err := a.saveImageUpload(c, file, "bukti")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := a.store.SubmitPayment(PaymentInput{
		StudentID:    req.StudentID,
		PeriodeBulan: req.PeriodeBulan,
		Tanggal:      time.Now(),
		Jumlah:       req.Jumlah,
		Metode:       req.Metode,
		BuktiURL:     buktiURL,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *app) addValidatedPaymentHandler(c *gin.Context) {
	var req struct {
		StudentID    string `json:"student_id" binding:"required"`
		PeriodeBulan string `json:"periode_bulan" binding:"required"`
		Tanggal      string `json:"tanggal"`
		Jumlah       int64  `json:"jumlah" binding:"required"`
		Metode       string `json:"metode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tanggal := time.Now()
	if req.Tanggal != "" {
		t, err := time.Parse(time.RFC3339, req.Tanggal)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tanggal harus berformat RFC3339"})
			return
		}
		tanggal = t
	}
	p, err := a.store.AddValidatedPayment(PaymentInput{
		StudentID:    req.StudentID,
		PeriodeBulan: req.PeriodeBulan,
		Tanggal:      tanggal,
		Jumlah:       req.Jumlah,
		Metode:       req.Metode,
	}, adminFromContext(c))
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *app) verifyPaymentHandler(c *gin.Context) {
	var req struct {
		Keputusan string `json:"keputusan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := a.store.ApprovePendingPayment(c.Param("id"), req.Keputusan, adminFromContext(c))
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- transactions ---

type transactionRequest struct {
	Tanggal    string  `json:"tanggal"`
	Tipe       string  `json:"tipe" binding:"required"`
	Kategori   string  `json:"kategori" binding:"required"`
	SumberDana string  `json:"sumber_dana" binding:"required"`
	Deskripsi  string  `json:"deskripsi" binding:"required"`
	Jumlah     int64   `json:"jumlah" binding:"required"`
	NotaURL    *string `json:"nota_url"`
}

func (r transactionRequest) toModel() (models.Transaction, error) {
	t := models.Transaction{
		Tipe:       r.Tipe,
		Kategori:   r.Kategori,
		SumberDana: r.SumberDana,
		Deskripsi:  r.Deskripsi,
		Jumlah:     r.Jumlah,
		NotaURL:    r.NotaURL,
	}
	if r.Tanggal != "" {
		parsed, err := time.Parse(time.RFC3339, r.Tanggal)
		if err != nil {
			return t, fmt.Errorf("tanggal harus berformat RFC3339")
		}
		t.Tanggal = parsed
	}
	return t, nil
}

func (a *app) createTransactionHandler(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.store.AddManualTransaction(&tx, adminFromContext(c)); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (a *app) updateTransactionHandler(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := a.store.UpdateTransaction(c.Param("id"), patch)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (a *app) deleteTransactionHandler(c *gin.Context) {
	if err := a.store.DeleteTransaction(c.Param("id")); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaksi dihapus"})
}

// --- uploads ---

// uploadHandler stores a receipt image for manual transactions and returns
// its public path for use as nota_url.
func (a *app) uploadHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	storePath, err := a.saveImageUpload(c, file, "nota")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store_path": storePath})
}

// saveImageUpload enforces the proof-image rules (max 5MB, image content
// type, must decode) and saves the file under the upload base dir. The
// returned path is the public relative path stored on the record.
func (a *app) saveImageUpload(c *gin.Context, file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > maxUploadBytes {
		return "", fmt.Errorf("ukuran file maksimal adalah 5MB")
	}
	ct := file.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("file harus berupa gambar")
	}
	baseDir := uploadBaseDir()
	if err := os.MkdirAll(filepath.Join(baseDir, folder), 0755); err != nil {
		return "", fmt.Errorf("mkdir failed: %w", err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	fullPath := filepath.Join(baseDir, folder, name)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		return "", fmt.Errorf("save failed: %w", err)
	}
	// content-type headers are client-supplied; only keep files that decode
	if _, err := imaging.Open(fullPath); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("file bukan gambar yang valid")
	}
	return "public/" + folder + "/" + name, nil
}

// --- export ---

func (a *app) exportHandler(c *gin.Context) {
	bulan := c.DefaultQuery("bulan", time.Now().In(ledger.WIB).Format("2006-01"))
	jenis := c.DefaultQuery("jenis", report.All)
	f, fileName, err := report.BuildMonthly(a.mirror.Transactions(), bulan, jenis)
	if err != nil {
		if errors.Is(err, report.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		log.Printf("export write failed: %v", err)
	}
}

// --- change feed ---

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedHandler streams change events to a websocket client until it
// disconnects. Each connection is one subscription; teardown unsubscribes
// so re-connecting clients never see duplicate deliveries.
func (a *app) feedHandler(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	events, cancel := a.hub.Subscribe()
	defer cancel()
	defer conn.Close()

	go func() {
		// drain client frames; a read error means the peer went away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
