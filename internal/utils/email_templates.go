package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"cedra_checkout/internal/models"
)

// OrderMailData alimente les gabarits de confirmation et de reçu
type OrderMailData struct {
	Order       models.Order
	Items       []models.OrderItem
	Record      models.TransactionRecord
	QRCode      template.URL
	FrontendURL string
	Backordered bool
}

var funcs = template.FuncMap{
	"money": func(v interface{ StringFixed(int32) string }) string { return v.StringFixed(2) },
	"line":  func(it models.OrderItem) string { return it.LineTotal().StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02/01/2006 15:04") },
	"short": shortID,
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Confirmation de commande</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande #{{short .Order.ID}}</h2>
		<p>Bonjour {{.Record.CustomerName}},</p>
		<p>Votre paiement <strong>{{.Record.ExternalRef}}</strong> a été confirmé.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
			{{range .Items}}
				<tr>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Title}}{{if .Backordered}} <em>({{.Backordered}} en réapprovisionnement)</em>{{end}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Quantity}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{money .UnitPrice}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{line .}}</td>
				</tr>
			{{end}}
			</tbody>
			<tfoot>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Sous-total</td><td style="padding: 10px;">{{money .Order.Total}}</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Remise</td><td style="padding: 10px;">-{{money .Order.Discount}}</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">TVA</td><td style="padding: 10px;">{{money .Order.Tax}}</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total payé</td><td style="padding: 10px; font-weight: bold;">{{money .Order.Payable}} {{.Record.Currency}}</td></tr>
			</tfoot>
		</table>
		{{if .QRCode}}<p style="text-align: center;"><img src="{{.QRCode}}" alt="QR paiement" width="160"></p>{{end}}
		<p><a href="{{.FrontendURL}}/orders" style="color: #667eea;">Voir ma commande</a></p>
		<p style="margin-top: 30px; color: #555;">Cordialement,<br><strong>L'équipe Cedra</strong></p>
	</div>
</body>
</html>`))

var adminTmpl = template.Must(template.New("admin").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif;">
	<h3>🛒 Nouvelle commande #{{short .Order.ID}}</h3>
	<p>Client : {{.Record.CustomerName}} ({{.Record.CustomerEmail}})</p>
	<p>Montant : <strong>{{money .Order.Payable}} {{.Record.Currency}}</strong>, paiement {{.Record.ExternalRef}}</p>
	<p>Livraison : {{.Record.Shipping.Address}} {{.Record.Shipping.Address2}}, {{.Record.Shipping.Postcode}} {{.Record.Shipping.City}}, tél. {{.Record.Shipping.Phone}}</p>
	{{if .Backordered}}<p style="color: #dc3545;">⚠️ Stock insuffisant pour une partie de la commande.</p>{{end}}
	<p>Passée le {{date .Order.CreatedAt}}</p>
</body>
</html>`))

var receiptTmpl = template.Must(template.New("receipt").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Reçu {{.Record.ExternalRef}}</title></head>
<body style="font-family: Arial, sans-serif;">
	<h2>Reçu de paiement</h2>
	<p>Référence : {{.Record.ExternalRef}}<br>Commande : {{.Order.ID}}<br>Date : {{date .Order.CreatedAt}}</p>
	<ul>
	{{range .Items}}<li>{{.Quantity}} x {{.Title}} : {{line .}}</li>{{end}}
	</ul>
	<p>Total : {{money .Order.Total}} / Remise : {{money .Order.Discount}} / TVA : {{money .Order.Tax}}</p>
	<p><strong>Payé : {{money .Order.Payable}} {{.Record.Currency}}</strong></p>
	{{if .QRCode}}<img src="{{.QRCode}}" alt="QR" width="160">{{end}}
</body>
</html>`))

func OrderConfirmationHTML(data OrderMailData) (string, error) {
	return render(confirmationTmpl, data)
}

func AdminOrderHTML(data OrderMailData) (string, error) {
	return render(adminTmpl, data)
}

func ReceiptHTML(data OrderMailData) (string, error) {
	return render(receiptTmpl, data)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// toURL marque une data URI générée localement comme sûre pour src
func toURL(dataURI string) template.URL {
	return template.URL(dataURI)
}

// QRCodeURL génère le QR de paiement pour les gabarits, vide en cas d'échec
func QRCodeURL(rec models.TransactionRecord) template.URL {
	qr, err := PaymentQR(rec.ExternalRef, rec.PayableAmount, rec.Currency)
	if err != nil {
		return ""
	}
	return toURL(qr)
}
