// Package notify prévient administrateurs et clients des commandes créées ou mises à jour.
// Tout y est best effort : un échec est journalisé, jamais remonté.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"
	"cedra_checkout/internal/store"
	"cedra_checkout/internal/utils"

	"github.com/google/uuid"
)

type Store interface {
	store.NotificationStore
	store.UserStore
}

// PDFPrinter transforme un reçu HTML en PDF joint au mail
type PDFPrinter interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

var (
	ErrNoRecipient = errors.New("aucune adresse e-mail pour ce paiement")
	ErrNoMailer    = errors.New("envoi d'e-mails non configuré")
)

type Dispatcher struct {
	store       Store
	mailer      utils.Sender
	pdf         PDFPrinter
	broadcaster Broadcaster
	frontendURL string
	now         func() time.Time
}

func NewDispatcher(s Store, mailer utils.Sender, b Broadcaster, frontendURL string) *Dispatcher {
	return &Dispatcher{
		store:       s,
		mailer:      mailer,
		broadcaster: b,
		frontendURL: frontendURL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithPDF joint une version PDF du reçu aux envois de SendReceipt
func (d *Dispatcher) WithPDF(p PDFPrinter) *Dispatcher {
	d.pdf = p
	return d
}

// NotifyOrderCreated : une notification par administrateur, un mail au client,
// un mail à chaque administrateur. Chaque envoi est indépendant.
func (d *Dispatcher) NotifyOrderCreated(ctx context.Context, ev reconcile.OrderEvent) {
	data := utils.OrderMailData{
		Order:       ev.Order,
		Items:       ev.Items,
		Record:      ev.Record,
		FrontendURL: d.frontendURL,
		Backordered: ev.Backordered,
	}

	admins, err := d.store.FindUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Printf("⚠️ Liste des administrateurs indisponible: %v", err)
	}

	content := fmt.Sprintf("Nouvelle commande #%s de %s : %s %s",
		short(ev.Order.ID), ev.Record.CustomerName, ev.Order.Payable.StringFixed(2), ev.Record.Currency)
	if ev.Backordered {
		content += " (stock insuffisant, articles en réapprovisionnement)"
	}
	for _, admin := range admins {
		d.notifyUser(ctx, admin.ID, content, ev.Order.ID)
	}

	data.QRCode = utils.QRCodeURL(ev.Record)
	if html, err := utils.OrderConfirmationHTML(data); err != nil {
		log.Printf("❌ Gabarit de confirmation: %v", err)
	} else {
		d.send(ctx, ev.Record.CustomerEmail, "Confirmation de votre commande Cedra", html)
	}

	if html, err := utils.AdminOrderHTML(data); err != nil {
		log.Printf("❌ Gabarit admin: %v", err)
	} else {
		for _, admin := range admins {
			d.send(ctx, admin.Email, "🛒 Nouvelle commande #"+short(ev.Order.ID), html)
		}
	}
}

// NotifyOrderStatus prévient le client d'un changement de statut logistique
func (d *Dispatcher) NotifyOrderStatus(ctx context.Context, order models.Order, email string) {
	subject, html := utils.OrderStatusEmail(order, d.frontendURL)
	d.send(ctx, email, subject, html)
	d.notifyUser(ctx, order.UserID, fmt.Sprintf("Commande #%s : %s", short(order.ID), order.Status), order.ID)
}

// SendReceipt renvoie le reçu au client, avec le QR de paiement et le PDF en
// pièces jointes. Contrairement aux notifications, l'échec d'envoi est remonté.
func (d *Dispatcher) SendReceipt(ctx context.Context, ev reconcile.OrderEvent) error {
	if ev.Record.CustomerEmail == "" {
		return ErrNoRecipient
	}
	if d.mailer == nil {
		return ErrNoMailer
	}

	data := utils.OrderMailData{
		Order:       ev.Order,
		Items:       ev.Items,
		Record:      ev.Record,
		FrontendURL: d.frontendURL,
		Backordered: ev.Backordered,
		QRCode:      utils.QRCodeURL(ev.Record),
	}
	html, err := utils.ReceiptHTML(data)
	if err != nil {
		return fmt.Errorf("gabarit du reçu: %w", err)
	}

	var attachments []utils.Attachment
	if png, err := utils.PaymentQRPNG(ev.Record.ExternalRef, ev.Record.PayableAmount, ev.Record.Currency); err == nil {
		attachments = append(attachments, utils.Attachment{Name: "paiement-" + ev.Record.ExternalRef + ".png", Data: png})
	} else {
		log.Printf("⚠️ QR code du reçu %s: %v", ev.Record.ExternalRef, err)
	}
	if d.pdf != nil {
		if pdf, err := d.pdf.Render(ctx, html); err == nil {
			attachments = append(attachments, utils.Attachment{Name: "recu-" + short(ev.Order.ID) + ".pdf", Data: pdf})
		} else {
			log.Printf("⚠️ PDF du reçu %s non généré: %v", ev.Record.ExternalRef, err)
		}
	}

	if err := d.mailer.Send(ctx, ev.Record.CustomerEmail, "Votre reçu Cedra #"+short(ev.Order.ID), html, attachments...); err != nil {
		return err
	}
	log.Printf("📧 Reçu %s envoyé à %s", ev.Record.ExternalRef, ev.Record.CustomerEmail)
	return nil
}

func (d *Dispatcher) notifyUser(ctx context.Context, userID, content, orderID string) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		OrderID:   orderID,
		CreatedAt: d.now(),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Printf("⚠️ Notification pour %s non enregistrée: %v", userID, err)
		return
	}
	if d.broadcaster == nil {
		return
	}
	if err := d.broadcaster.Publish(ctx, *n); err != nil {
		log.Printf("⚠️ Diffusion temps réel vers %s impossible: %v", userID, err)
	}
}

func (d *Dispatcher) send(ctx context.Context, to, subject, html string) {
	if to == "" || d.mailer == nil {
		return
	}
	if err := d.mailer.Send(ctx, to, subject, html); err != nil {
		log.Printf("❌ Erreur envoi e-mail à %s: %v", to, err)
		return
	}
	log.Printf("📧 E-mail envoyé à %s", to)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
