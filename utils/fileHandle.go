package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"clubreg/config"
	"clubreg/models"
	"clubreg/services/reconcile"
)

var unsafeFileChars = regexp.MustCompile(`[^\w.-]`)

// BuildReceiptName composes the deterministic file name for a receipt:
// identity, surname, given name (omitted for family payments), the payment
// method and the derived status, prefixed for installment plans by the
// dash-joined tags. Deterministic names make retried uploads overwrite the
// same blob instead of piling up copies.
func BuildReceiptName(e *models.Enrollee, tags reconcile.TagSet, statusForName, originalName string, isFamily bool) string {
	methodLabel := strings.NewReplacer(" ", "", "(", "", ")", "").Replace(e.PaymentMethod.Label())
	statusLabel := regexp.MustCompile(`[\s(),]`).ReplaceAllString(statusForName, "_")

	var base string
	if isFamily {
		base = fmt.Sprintf("%s_%s_%s_%s", e.DNI, e.LastName, methodLabel, statusLabel)
	} else {
		base = fmt.Sprintf("%s_%s_%s_%s_%s", e.DNI, e.LastName, e.FirstName, methodLabel, statusLabel)
	}
	if e.PaymentMethod == models.PaymentMethodInstallments {
		base = tags.Join("-") + "_" + base
	}

	base = unsafeFileChars.ReplaceAllString(base, "_")

	ext := "jpg"
	if i := strings.LastIndexByte(originalName, '.'); i >= 0 && i < len(originalName)-1 {
		ext = originalName[i+1:]
	}
	return base + "." + ext
}

// SaveReceipt stores an uploaded receipt under the per-DNI folder and returns
// its durable link. The write happens before any record mutation, so a failed
// upload never leaves partial reconciliation state.
func SaveReceipt(file *multipart.FileHeader, dni, filename string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("opening uploaded receipt: %w", err)
	}
	defer src.Close()

	destDir := filepath.Join(config.AppConfig.UploadDir, "receipts", dni)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating receipt folder: %w", err)
	}

	dst, err := os.Create(filepath.Join(destDir, filename))
	if err != nil {
		return "", fmt.Errorf("creating receipt file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing receipt file: %w", err)
	}

	return config.AppConfig.PublicBaseURL + "/receipts/" + dni + "/" + filename, nil
}
