// Package archive dépose les reçus de paiement dans MinIO.
package archive

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"cedra_checkout/internal/reconcile"
	"cedra_checkout/internal/utils"

	"github.com/minio/minio-go/v7"
)

// ObjectStore est le sous-ensemble de *minio.Client utilisé ici
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type ReceiptArchiver struct {
	objects     ObjectStore
	bucket      string
	frontendURL string
}

func NewReceiptArchiver(objects ObjectStore, bucket, frontendURL string) *ReceiptArchiver {
	return &ReceiptArchiver{objects: objects, bucket: bucket, frontendURL: frontendURL}
}

func ReceiptKey(ref string) string {
	return "receipts/" + ref + ".html"
}

func (a *ReceiptArchiver) Name() string { return "minio" }

func (a *ReceiptArchiver) OnOrderMaterialized(ctx context.Context, ev reconcile.OrderEvent) error {
	html, err := utils.ReceiptHTML(utils.OrderMailData{
		Order:       ev.Order,
		Items:       ev.Items,
		Record:      ev.Record,
		QRCode:      utils.QRCodeURL(ev.Record),
		FrontendURL: a.frontendURL,
		Backordered: ev.Backordered,
	})
	if err != nil {
		return fmt.Errorf("rendu du reçu: %w", err)
	}

	key := ReceiptKey(ev.Record.ExternalRef)
	_, err = a.objects.PutObject(ctx, a.bucket, key, strings.NewReader(html), int64(len(html)),
		minio.PutObjectOptions{ContentType: "text/html; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("dépôt MinIO %s: %w", key, err)
	}
	log.Printf("✅ Reçu archivé : %s/%s", a.bucket, key)
	return nil
}

// ReceiptURL génère une URL signée temporaire vers le reçu d'un paiement
func (a *ReceiptArchiver) ReceiptURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	u, err := a.objects.PresignedGetObject(ctx, a.bucket, ReceiptKey(ref), ttl, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
